package contact

import (
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var (
	ErrCooldown    = errors.New("too many requests, please wait")
	ErrRateLimited = errors.New("rate limit exceeded")
)

const hourlyWindow = time.Hour

type window struct {
	start time.Time
	count int
}

// Limiter enforces a per-client cooldown and an hourly quota. Entries are
// evicted once neither the cooldown nor the hourly window can apply.
type Limiter struct {
	cooldown time.Duration
	limit    int
	lastSeen *gocache.Cache
	windows  *gocache.Cache
	now      func() time.Time
	mu       sync.Mutex
}

func NewLimiter(cooldown time.Duration, hourlyLimit int) *Limiter {
	return &Limiter{
		cooldown: cooldown,
		limit:    hourlyLimit,
		lastSeen: gocache.New(max(cooldown, hourlyWindow), 10*time.Minute),
		windows:  gocache.New(hourlyWindow, 10*time.Minute),
		now:      time.Now,
	}
}

// Allow records an attempt from clientID. The cooldown timestamp is updated
// before the quota is checked, so a rejected attempt still starts a new
// cooldown. An empty client id is never limited.
func (l *Limiter) Allow(clientID string) error {
	if clientID == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if last, found := l.lastSeen.Get(clientID); found {
		if now.Sub(last.(time.Time)) < l.cooldown {
			return ErrCooldown
		}
	}
	l.lastSeen.SetDefault(clientID, now)

	w := window{start: now}
	if stored, found := l.windows.Get(clientID); found {
		w = stored.(window)
	}
	if now.Sub(w.start) > hourlyWindow {
		w = window{start: now}
	}
	if w.count >= l.limit {
		return ErrRateLimited
	}
	w.count++
	l.windows.SetDefault(clientID, w)

	return nil
}
