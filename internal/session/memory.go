package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It is the default for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	plain  map[string][]byte
	scoped map[string]map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plain:  make(map[string][]byte),
		scoped: make(map[string]map[string][]byte),
	}
}

func (m *MemoryStore) ReadAllFor(_ context.Context, userPrincipal, scope, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.scoped[ScopedKey(userPrincipal, scope, key)]
	if !ok {
		return nil, nil
	}
	out := make(map[string][]byte, len(fields))
	for k, v := range fields {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *MemoryStore) WriteAllFor(_ context.Context, userPrincipal, scope, key string, fields map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := ScopedKey(userPrincipal, scope, key)
	existing, ok := m.scoped[k]
	if !ok {
		existing = make(map[string][]byte, len(fields))
		m.scoped[k] = existing
	}
	for f, v := range fields {
		existing[f] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryStore) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.plain[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) WriteAll(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plain[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) RemoveTag(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plain, key)
	delete(m.scoped, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
