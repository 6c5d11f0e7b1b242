package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 以内存方式保存交易日志，适用于测试与单次命令行会话。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	seq     map[string]int
	next    int
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry), seq: make(map[string]int)}
}

// Append 实现 Store 接口。
func (m *MemoryStore) Append(_ context.Context, entry Entry) error {
	entry.Prepare()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; ok {
		return ErrEntryConflict
	}
	clone := entry
	m.entries[entry.ID] = &clone
	m.next++
	m.seq[entry.ID] = m.next
	return nil
}

// Get 返回指定记录。
func (m *MemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	clone := *entry
	return &clone, nil
}

// List 按写入顺序倒序返回记录。
func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]*Entry, error) {
	opts.applyDefaults()
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		if !opts.matches(entry) {
			continue
		}
		clone := *entry
		results = append(results, &clone)
	}
	sort.Slice(results, func(i, j int) bool {
		return m.seq[results[i].ID] > m.seq[results[j].ID]
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}
