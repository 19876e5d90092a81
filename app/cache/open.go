package cache

import (
	"context"
	"fmt"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Options struct {
	Backend   string
	Path      string
	RedisAddr string
}

// Open builds the blob store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (BlobStore, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryBlobStore(), nil
	case BackendSQLite:
		return NewSQLiteBlobStore(opts.Path)
	case BackendRedis:
		return NewRedisBlobStore(ctx, opts.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", opts.Backend)
	}
}
