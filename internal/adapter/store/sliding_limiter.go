package store

import (
	"context"
	"sync"
	"time"

	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/logging"
)

// SlidingWindowLimiter is a process-local sliding-window rate limiter. Each
// client keeps the timestamps of its admitted requests within the trailing
// period. Clients are created lazily and removed by Sweep once idle.
type SlidingWindowLimiter struct {
	limit      int
	period     time.Duration
	maxClients int
	now        func() time.Time

	mu      sync.RWMutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	mu       sync.Mutex
	hits     []time.Time
	lastSeen time.Time
	evicted  bool
}

type LimiterOption func(*SlidingWindowLimiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *SlidingWindowLimiter) {
		l.now = now
	}
}

// WithMaxClients caps the number of tracked clients. Zero means unbounded.
func WithMaxClients(n int) LimiterOption {
	return func(l *SlidingWindowLimiter) {
		l.maxClients = n
	}
}

func NewSlidingWindowLimiter(limit int, period time.Duration, opts ...LimiterOption) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit records a request from clientID if the client is under its limit.
// The prune, count and append happen under the client's lock.
func (l *SlidingWindowLimiter) Admit(clientID string) entity.RateLimitDecision {
	for {
		w := l.window(clientID)

		w.mu.Lock()
		if w.evicted {
			// Swept between lookup and lock; look it up again.
			w.mu.Unlock()
			continue
		}

		now := l.now()
		w.prune(now, l.period)
		w.lastSeen = now

		decision := entity.RateLimitDecision{
			Allowed: true,
			Limit:   l.limit,
			Period:  l.period,
		}
		if len(w.hits) >= l.limit {
			resetAt := w.hits[0].Add(l.period)
			decision.Allowed = false
			decision.ResetAt = resetAt
			decision.RetryAfter = resetAt.Sub(now)
		} else {
			w.hits = append(w.hits, now)
			decision.ResetAt = w.hits[0].Add(l.period)
		}
		w.mu.Unlock()

		return decision
	}
}

// Usage returns the number of requests counted for clientID in the current window.
func (l *SlidingWindowLimiter) Usage(clientID string) int {
	l.mu.RLock()
	w, ok := l.clients[clientID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(l.now(), l.period)
	return len(w.hits)
}

// Clients returns the number of tracked clients.
func (l *SlidingWindowLimiter) Clients() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

func (l *SlidingWindowLimiter) Stats() entity.RateLimitStats {
	return entity.RateLimitStats{
		Clients: l.Clients(),
		Limit:   l.limit,
		Period:  l.period,
	}
}

// Sweep removes clients with no requests left in their window and returns
// how many were removed.
func (l *SlidingWindowLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

// Run sweeps idle clients every interval until ctx is done.
func (l *SlidingWindowLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				logging.From(ctx).Debug("swept idle rate limit clients", "removed", n, "remaining", l.Clients())
			}
		}
	}
}

func (l *SlidingWindowLimiter) window(clientID string) *clientWindow {
	l.mu.RLock()
	w, ok := l.clients[clientID]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.clients[clientID]; ok {
		return w
	}

	if l.maxClients > 0 && len(l.clients) >= l.maxClients {
		l.sweepLocked(l.now())
		if len(l.clients) >= l.maxClients {
			l.evictLeastRecentLocked()
		}
	}

	w = &clientWindow{}
	l.clients[clientID] = w
	return w
}

// sweepLocked requires l.mu held for writing.
func (l *SlidingWindowLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for id, w := range l.clients {
		w.mu.Lock()
		w.prune(now, l.period)
		if len(w.hits) == 0 {
			w.evicted = true
			delete(l.clients, id)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// evictLeastRecentLocked requires l.mu held for writing.
func (l *SlidingWindowLimiter) evictLeastRecentLocked() {
	var (
		oldestID   string
		oldestSeen time.Time
		found      bool
	)
	for id, w := range l.clients {
		w.mu.Lock()
		seen := w.lastSeen
		w.mu.Unlock()
		if !found || seen.Before(oldestSeen) {
			oldestID, oldestSeen, found = id, seen, true
		}
	}
	if !found {
		return
	}

	w := l.clients[oldestID]
	w.mu.Lock()
	w.evicted = true
	w.mu.Unlock()
	delete(l.clients, oldestID)
}

// prune drops hits whose age is not strictly less than period. Hits are
// appended in time order, so the survivors are a suffix.
func (w *clientWindow) prune(now time.Time, period time.Duration) {
	i := 0
	for i < len(w.hits) && now.Sub(w.hits[i]) >= period {
		i++
	}
	if i > 0 {
		w.hits = append(w.hits[:0], w.hits[i:]...)
	}
}
