package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBlobStore keeps blobs in process memory. Contents are lost on restart.
type MemoryBlobStore struct {
	items *gocache.Cache
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

func (m *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, found := m.items.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	data := value.([]byte)
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlobStore) Set(ctx context.Context, key string, value []byte) error {
	m.items.Set(key, append([]byte(nil), value...), gocache.NoExpiration)
	return nil
}

func (m *MemoryBlobStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryBlobStore) Name() string {
	return "memory"
}

func (m *MemoryBlobStore) Close() error {
	m.items.Flush()
	return nil
}
