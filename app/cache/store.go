package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/tldr-digest/app/feed"
)

// Store owns the digest slots and their TTL policy. A stale entry is reported
// as such but never removed, so it stays available as a fallback.
type Store struct {
	blobs BlobStore
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(blobs BlobStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		blobs: blobs,
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetClock replaces the time source used for freshness checks and writes.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) Backend() BlobStore {
	return s.blobs
}

// ReadFresh returns the entry under key only while it is younger than the TTL.
func (s *Store) ReadFresh(ctx context.Context, key string) (*Entry, bool, error) {
	entry, fresh, err := s.ReadLatest(ctx, key)
	if err != nil || !fresh {
		return nil, false, err
	}
	return entry, true, nil
}

// ReadLatest returns whatever entry is stored, fresh or not. A missing or
// unreadable entry yields a nil entry and no error.
func (s *Store) ReadLatest(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("Ignoring unreadable cache entry", "backend", s.blobs.Name(), "key", key, "error", err)
		return nil, false, nil
	}

	return &entry, s.isFresh(entry), nil
}

// Write overwrites the slot under key unconditionally.
func (s *Store) Write(ctx context.Context, key string, items []feed.Item) (*Entry, error) {
	entry := &Entry{
		WrittenAt: s.now(),
		Items:     items,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := s.blobs.Set(ctx, key, data); err != nil {
		return nil, fmt.Errorf("failed to write cache: %w", err)
	}

	slog.Debug("Cache written", "backend", s.blobs.Name(), "key", key, "items", len(items))

	return entry, nil
}

func (s *Store) isFresh(entry Entry) bool {
	return s.now().Sub(entry.WrittenAt) < s.ttl
}
