package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Registry owns the limiters of a process for its whole lifetime.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
	metrics  Metrics
}

func NewRegistry(metrics Metrics) *Registry {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Registry{
		limiters: make(map[string]Limiter),
		metrics:  metrics,
	}
}

// Register adds l under its policy name, replacing any previous limiter.
func (r *Registry) Register(l Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[l.Policy().Name] = l
}

func (r *Registry) Limiter(policy string) (Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.limiters[policy]
	return l, ok
}

// CheckRateLimit reports whether identity may make one more request under
// policy, consuming a unit when it may.
func (r *Registry) CheckRateLimit(ctx context.Context, identity, policy string) (bool, error) {
	l, ok := r.Limiter(policy)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
	allowed := l.Allow(ctx, identity)
	r.metrics.RecordRateLimitDecision(policy, allowed)
	return allowed, nil
}

// Run sweeps expired windows of every in-memory limiter until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.purge()
		}
	}
}

func (r *Registry) purge() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.limiters {
		if m, ok := l.(*MemoryLimiter); ok {
			m.Purge()
		}
	}
}
