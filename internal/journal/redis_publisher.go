package journal

import (
	"context"
	"encoding/json"
	"errors"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/redis/go-redis/v9"
)

// RedisPublisherConfig 描述 Redis 投递参数。
type RedisPublisherConfig struct {
	Address  string
	Password string
	DB       int
	List     string
}

// RedisPublisher 将交易记录以 JSON 形式 LPUSH 到 Redis list。
type RedisPublisher struct {
	client redis.Cmdable
	closer func() error
	list   string
}

// NewRedisPublisher 创建 Redis 投递器。
func NewRedisPublisher(ctx context.Context, cfg RedisPublisherConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "连接 Redis 失败")
	}
	return newRedisPublisher(client, client.Close, cfg.List), nil
}

func newRedisPublisher(client redis.Cmdable, closer func() error, list string) *RedisPublisher {
	if list == "" {
		list = "projectsubmission:journal"
	}
	return &RedisPublisher{client: client, closer: closer, list: list}
}

// Publish 实现 Publisher 接口。
func (p *RedisPublisher) Publish(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return xerrors.Wrap(CodePublish, err, "编码交易记录失败")
	}
	if err := p.client.LPush(ctx, p.list, payload).Err(); err != nil {
		return xerrors.Wrap(CodePublish, err, "Redis 投递交易记录失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.closer == nil {
		return nil
	}
	return p.closer()
}
