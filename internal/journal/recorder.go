package journal

import (
	"context"
	"errors"
)

// Fanout 先写入 Store，再依次投递到各个 Publisher。
type Fanout struct {
	store      Store
	publishers []Publisher
}

// NewFanout 组合存储与投递器，store 可以为 nil。
func NewFanout(store Store, publishers ...Publisher) *Fanout {
	return &Fanout{store: store, publishers: publishers}
}

// Record 实现 Recorder 接口。任一环节失败都不会阻止其余环节执行。
func (f *Fanout) Record(ctx context.Context, entry Entry) error {
	entry.Prepare()
	var err error
	if f.store != nil {
		err = errors.Join(err, f.store.Append(ctx, entry))
	}
	for _, publisher := range f.publishers {
		err = errors.Join(err, publisher.Publish(ctx, entry))
	}
	return err
}

// Store 返回底层存储。
func (f *Fanout) Store() Store {
	return f.store
}

// Close 关闭所有底层资源。
func (f *Fanout) Close() error {
	var err error
	if f.store != nil {
		err = errors.Join(err, f.store.Close())
	}
	for _, publisher := range f.publishers {
		err = errors.Join(err, publisher.Close())
	}
	return err
}
