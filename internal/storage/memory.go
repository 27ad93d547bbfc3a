package storage

import (
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values for the lifetime of the process only.
type MemoryStore struct {
	cache  *cache.Cache
	closed atomic.Bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store. Values never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	if m.closed.Load() {
		return "", false, ErrClosed
	}
	if x, found := m.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Remove(keys ...string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	for _, k := range keys {
		m.cache.Delete(k)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.cache.Flush()
	}
	return nil
}
