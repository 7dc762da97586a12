package ratelimit

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordRateLimitDecision(policy string, allowed bool) {
	m.Called(policy, allowed)
}

func (m *MockMetrics) RecordRateLimitError(policy string) {
	m.Called(policy)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestMemoryLimiter_Window(t *testing.T) {
	clock := newClock()
	l, err := NewMemoryLimiter(Policy{Name: PolicyAuth, Max: 5, Window: 15 * time.Minute}, WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(ctx, "10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, l.Allow(ctx, "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "10.0.0.1"))

	// Other identities have their own budget.
	assert.True(t, l.Allow(ctx, "10.0.0.2"))

	// Exactly at resetAt the window is still closed.
	clock.Advance(15 * time.Minute)
	assert.False(t, l.Allow(ctx, "10.0.0.1"))

	clock.Advance(time.Millisecond)
	assert.True(t, l.Allow(ctx, "10.0.0.1"))
}

func TestMemoryLimiter_DeniedCallsDoNotConsume(t *testing.T) {
	clock := newClock()
	l, err := NewMemoryLimiter(Policy{Name: PolicyAPI, Max: 2, Window: time.Minute}, WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a"))
	assert.True(t, l.Allow(ctx, "a"))
	for i := 0; i < 10; i++ {
		assert.False(t, l.Allow(ctx, "a"))
	}

	l.mu.Lock()
	assert.Equal(t, 2, l.windows["a"].count)
	l.mu.Unlock()
}

func TestMemoryLimiter_KeepsOwnCopyOfIdentity(t *testing.T) {
	l, err := NewMemoryLimiter(Policy{Name: PolicyAPI, Max: 1, Window: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	// Callers may hand in strings that alias a buffer they later reuse.
	buf := []byte("203.0.113.1")
	assert.True(t, l.Allow(ctx, unsafe.String(&buf[0], len(buf))))
	copy(buf, "203.0.113.2")

	assert.False(t, l.Allow(ctx, "203.0.113.1"))
	assert.True(t, l.Allow(ctx, "203.0.113.2"))
	assert.Equal(t, 2, l.Len())
}

func TestMemoryLimiter_Purge(t *testing.T) {
	clock := newClock()
	l, err := NewMemoryLimiter(Policy{Name: PolicyAPI, Max: 1, Window: time.Minute}, WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	l.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	l.Allow(ctx, "b")
	clock.Advance(31 * time.Second)

	assert.Equal(t, 1, l.Purge())
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_RunStopsOnCancel(t *testing.T) {
	l, err := NewMemoryLimiter(Policy{Name: PolicyAPI, Max: 1, Window: time.Nanosecond})
	require.NoError(t, err)
	l.Allow(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemoryLimiter_ConcurrentCallersShareBudget(t *testing.T) {
	l, err := NewMemoryLimiter(Policy{Name: PolicyAPI, Max: 100, Window: time.Hour})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(context.Background(), "shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
}

func TestPolicyValidate(t *testing.T) {
	_, err := NewMemoryLimiter(Policy{Name: "zero", Max: 0, Window: time.Minute})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = NewMemoryLimiter(Policy{Name: "nowindow", Max: 1})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestRegistry_CheckRateLimit(t *testing.T) {
	metrics := new(MockMetrics)
	registry := NewRegistry(metrics)

	auth, err := NewMemoryLimiter(Policy{Name: PolicyAuth, Max: 1, Window: time.Minute})
	require.NoError(t, err)
	registry.Register(auth)

	metrics.On("RecordRateLimitDecision", PolicyAuth, true).Once()
	metrics.On("RecordRateLimitDecision", PolicyAuth, false).Once()

	ok, err := registry.CheckRateLimit(context.Background(), "1.2.3.4", PolicyAuth)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.CheckRateLimit(context.Background(), "1.2.3.4", PolicyAuth)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = registry.CheckRateLimit(context.Background(), "1.2.3.4", "upload")
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	metrics.AssertExpectations(t)
}

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteIP     string
		want         string
	}{
		{"first forwarded hop", " 203.0.113.7 , 10.0.0.1", "10.0.0.2", "203.0.113.7"},
		{"single forwarded", "198.51.100.1", "", "198.51.100.1"},
		{"empty first hop falls back", " ,10.0.0.1", "192.0.2.9", "192.0.2.9"},
		{"remote only", "", "192.0.2.9", "192.0.2.9"},
		{"nothing", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIdentity(tt.forwardedFor, tt.remoteIP))
		})
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	metrics := new(MockMetrics)
	metrics.On("RecordRateLimitError", PolicyAPI).Once()

	l, err := NewRedisLimiter(Policy{Name: PolicyAPI, Max: 1, Window: time.Minute}, client, nil, metrics)
	require.NoError(t, err)

	assert.True(t, l.Allow(context.Background(), "anyone"))
	metrics.AssertExpectations(t)
}

func TestRedisLimiter_Window(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	identity := uuid.NewString()
	l, err := NewRedisLimiter(Policy{Name: PolicyAuth, Max: 3, Window: 200 * time.Millisecond}, client, nil, nil)
	require.NoError(t, err)
	defer client.Del(ctx, l.key(identity))

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, identity))
	}
	assert.False(t, l.Allow(ctx, identity))

	n, err := client.Get(ctx, l.key(identity)).Int()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Eventually(t, func() bool { return l.Allow(ctx, identity) }, 2*time.Second, 50*time.Millisecond)
}
