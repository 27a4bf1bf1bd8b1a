package store_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/adapter/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSlidingWindowLimiter_RetryAfterFromOldestHit(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(2, 60*time.Second, store.WithClock(clock.Now))

	assert.True(t, limiter.Admit("A").Allowed, "t=0")
	clock.Advance(time.Second)
	assert.True(t, limiter.Admit("A").Allowed, "t=1")

	clock.Advance(time.Second)
	decision := limiter.Admit("A")
	require.False(t, decision.Allowed, "t=2")
	assert.Equal(t, 58*time.Second, decision.RetryAfter)
	assert.Equal(t, 2, decision.Limit)
	assert.Equal(t, 60*time.Second, decision.Period)
	assert.Equal(t, clock.Now().Add(58*time.Second), decision.ResetAt)

	clock.Advance(59 * time.Second)
	assert.True(t, limiter.Admit("A").Allowed, "t=61")
}

func TestSlidingWindowLimiter_AdmitsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(5, time.Minute, store.WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Admit("client").Allowed, "request %d", i)
		clock.Advance(10 * time.Second)
	}
	assert.Equal(t, 5, limiter.Usage("client"))
}

func TestSlidingWindowLimiter_RejectedRequestsAreNotCounted(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(1, time.Minute, store.WithClock(clock.Now))

	require.True(t, limiter.Admit("A").Allowed)
	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Second)
		assert.False(t, limiter.Admit("A").Allowed)
	}
	assert.Equal(t, 1, limiter.Usage("A"))

	clock.Advance(30 * time.Second)
	assert.True(t, limiter.Admit("A").Allowed)
}

func TestSlidingWindowLimiter_EqualAgeExpires(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(1, time.Minute, store.WithClock(clock.Now))

	require.True(t, limiter.Admit("A").Allowed)

	clock.Advance(time.Minute - time.Nanosecond)
	decision := limiter.Admit("A")
	assert.False(t, decision.Allowed)
	assert.Equal(t, time.Nanosecond, decision.RetryAfter)

	clock.Advance(time.Nanosecond)
	assert.True(t, limiter.Admit("A").Allowed)
}

func TestSlidingWindowLimiter_ClientsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(1, time.Minute, store.WithClock(clock.Now))

	assert.True(t, limiter.Admit("A").Allowed)
	assert.True(t, limiter.Admit("B").Allowed)
	assert.False(t, limiter.Admit("A").Allowed)
	assert.False(t, limiter.Admit("B").Allowed)
	assert.Equal(t, 2, limiter.Clients())
}

func TestSlidingWindowLimiter_ConcurrentSameClient(t *testing.T) {
	limiter := store.NewSlidingWindowLimiter(10, time.Minute)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit("burst").Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), admitted.Load())
}

func TestSlidingWindowLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(3, time.Minute, store.WithClock(clock.Now))

	limiter.Admit("idle")
	clock.Advance(30 * time.Second)
	limiter.Admit("active")

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, limiter.Sweep())
	assert.Equal(t, 1, limiter.Clients())
	assert.Equal(t, 1, limiter.Usage("active"))
	assert.Equal(t, 0, limiter.Usage("idle"))

	assert.True(t, limiter.Admit("idle").Allowed)
}

func TestSlidingWindowLimiter_MaxClients(t *testing.T) {
	clock := newFakeClock()
	limiter := store.NewSlidingWindowLimiter(1, time.Minute,
		store.WithClock(clock.Now),
		store.WithMaxClients(3),
	)

	for i := 0; i < 3; i++ {
		limiter.Admit(fmt.Sprintf("client-%d", i))
		clock.Advance(time.Second)
	}
	assert.Equal(t, 3, limiter.Clients())

	assert.True(t, limiter.Admit("client-3").Allowed)
	assert.Equal(t, 3, limiter.Clients())
	assert.Equal(t, 0, limiter.Usage("client-0"), "least recently seen client is evicted")
	assert.Equal(t, 1, limiter.Usage("client-1"))
}

func TestSlidingWindowLimiter_RunStopsOnCancel(t *testing.T) {
	limiter := store.NewSlidingWindowLimiter(1, time.Millisecond)
	limiter.Admit("A")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Clients() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSlidingWindowLimiter_Stats(t *testing.T) {
	limiter := store.NewSlidingWindowLimiter(5, time.Minute)
	limiter.Admit("A")
	limiter.Admit("B")

	stats := limiter.Stats()
	assert.Equal(t, 2, stats.Clients)
	assert.Equal(t, 5, stats.Limit)
	assert.Equal(t, time.Minute, stats.Period)
}
