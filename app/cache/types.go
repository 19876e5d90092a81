package cache

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/tldr-digest/app/feed"
)

// Key is the single slot the digest lives under. Bump the suffix when the
// payload layout changes.
const Key = "tldr-cache-v1"

const DefaultTTL = 45 * time.Minute

var ErrNotFound = errors.New("cache entry not found")

type Entry struct {
	WrittenAt time.Time   `json:"writtenAt"`
	Items     []feed.Item `json:"items"`
}

// BlobStore is a key/value byte store. Implementations never expire keys on
// their own; freshness is decided by Store.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Name() string
	Close() error
}
