package cache

import (
	"context"
	"testing"
	"time"

	"github.com/lysyi3m/tldr-digest/app/feed"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(NewMemoryBlobStore(), 45*time.Minute)
	store.SetClock(clock.Now)
	return store, clock
}

func testItems() []feed.Item {
	return []feed.Item{
		{
			Title:            "Ransomware hits city",
			Link:             "https://example.com/1",
			PublishedAt:      time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
			Source:           "Wired",
			DescriptionClean: "A ransomware attack",
		},
		{
			Title:  "Undated AI story",
			Link:   "https://example.com/2",
			Source: "TechCrunch",
		},
	}
}

func TestStore_RoundTripWithinTTL(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	if _, err := store.Write(ctx, Key, testItems()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	clock.now = clock.now.Add(44 * time.Minute)

	entry, ok, err := store.ReadFresh(ctx, Key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !ok {
		t.Fatal("Expected a fresh entry within the TTL")
	}
	if len(entry.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(entry.Items))
	}
	if entry.Items[0].Title != "Ransomware hits city" {
		t.Errorf("Expected first title to survive round trip, got %s", entry.Items[0].Title)
	}
	if !entry.Items[0].PublishedAt.Equal(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected published date to survive round trip, got %v", entry.Items[0].PublishedAt)
	}
	if entry.Items[1].HasValidDate() {
		t.Error("Expected invalid date sentinel to survive round trip")
	}
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	if _, err := store.Write(ctx, Key, testItems()); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(45 * time.Minute)

	entry, ok, err := store.ReadFresh(ctx, Key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if ok || entry != nil {
		t.Error("Expected no fresh entry once the TTL has elapsed")
	}
}

func TestStore_StaleReadDoesNotDelete(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	if _, err := store.Write(ctx, Key, testItems()); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(3 * time.Hour)

	if _, ok, _ := store.ReadFresh(ctx, Key); ok {
		t.Fatal("Expected stale entry")
	}

	entry, fresh, err := store.ReadLatest(ctx, Key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected stale entry to remain readable")
	}
	if fresh {
		t.Error("Expected entry to be reported as stale")
	}
	if len(entry.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(entry.Items))
	}
}

func TestStore_MissingEntry(t *testing.T) {
	store, _ := newTestStore(t)

	entry, fresh, err := store.ReadLatest(context.Background(), Key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entry != nil || fresh {
		t.Error("Expected nil entry for an empty cache")
	}
}

func TestStore_UnreadableEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	store := NewStore(blobs, time.Minute)

	if err := blobs.Set(ctx, Key, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	entry, _, err := store.ReadLatest(ctx, Key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entry != nil {
		t.Error("Expected unreadable entry to be treated as a miss")
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	if _, err := store.Write(ctx, Key, testItems()); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(time.Hour)
	latest := []feed.Item{{Title: "Security patch", Link: "https://example.com/3"}}
	if _, err := store.Write(ctx, Key, latest); err != nil {
		t.Fatal(err)
	}

	entry, ok, err := store.ReadFresh(ctx, Key)
	if err != nil || !ok {
		t.Fatalf("Expected fresh entry, got ok=%v err=%v", ok, err)
	}
	if len(entry.Items) != 1 || entry.Items[0].Title != "Security patch" {
		t.Errorf("Expected last write to win, got %+v", entry.Items)
	}
	if !entry.WrittenAt.Equal(clock.now) {
		t.Errorf("Expected written at %v, got %v", clock.now, entry.WrittenAt)
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.Write(ctx, Key, testItems()); err != nil {
		t.Fatal(err)
	}

	other, ok, err := store.ReadFresh(ctx, "tldr-cache-preview")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if ok || other != nil {
		t.Error("Expected an unwritten key to be absent")
	}

	preview := []feed.Item{{Title: "Preview", Link: "https://example.com/preview"}}
	if _, err := store.Write(ctx, "tldr-cache-preview", preview); err != nil {
		t.Fatal(err)
	}

	entry, ok, err := store.ReadFresh(ctx, Key)
	if err != nil || !ok {
		t.Fatalf("Expected fresh entry, got ok=%v err=%v", ok, err)
	}
	if len(entry.Items) != 2 {
		t.Errorf("Expected default slot to keep 2 items, got %d", len(entry.Items))
	}
}

func TestNewStore_DefaultTTL(t *testing.T) {
	store := NewStore(NewMemoryBlobStore(), 0)
	if store.TTL() != DefaultTTL {
		t.Errorf("Expected default TTL %v, got %v", DefaultTTL, store.TTL())
	}
}
