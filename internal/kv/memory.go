package kv

import (
	"context"
	"path"
	"sync"
)

// MemoryStore is an in-memory implementation for quick start and tests.
// State is lost on restart; multi-instance deployments need one of the
// durable backends.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	lists  map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		lists:  make(map[string][]string),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Append(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Copy out so callers cannot mutate internal state.
	src := m.lists[key]
	out := make([]string, len(src))
	copy(out, src)
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	seen := make(map[string]bool)
	for key := range m.values {
		if ok, err := path.Match(pattern, key); err != nil {
			return nil, err
		} else if ok && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	for key := range m.lists {
		if ok, err := path.Match(pattern, key); err != nil {
			return nil, err
		} else if ok && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
