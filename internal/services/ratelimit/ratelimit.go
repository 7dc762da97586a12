// Package ratelimit throttles requests per client identity with fixed
// windows. A MemoryLimiter counts per process; a RedisLimiter shares its
// counters across every instance pointed at the same redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paywave/internal/config"
)

// Policy names
const (
	PolicyAPI  = "api"
	PolicyAuth = "auth"
)

var (
	ErrUnknownPolicy = errors.New("unknown rate limit policy")
	ErrInvalidPolicy = errors.New("invalid rate limit policy")
)

// Policy allows Max requests per identity per Window.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

func (p Policy) Validate() error {
	if p.Name == "" || p.Max <= 0 || p.Window <= 0 {
		return fmt.Errorf("%w: %q max=%d window=%s", ErrInvalidPolicy, p.Name, p.Max, p.Window)
	}
	return nil
}

// PoliciesFromConfig returns the api and auth policies.
func PoliciesFromConfig(cfg *config.Config) []Policy {
	return []Policy{
		{Name: PolicyAPI, Max: cfg.APIRateLimit.Max, Window: cfg.APIRateLimit.Window},
		{Name: PolicyAuth, Max: cfg.AuthRateLimit.Max, Window: cfg.AuthRateLimit.Window},
	}
}

// Limiter decides whether one more request from identity fits its policy.
// An allowed call consumes one unit; a denied call consumes nothing.
type Limiter interface {
	Allow(ctx context.Context, identity string) bool
	Policy() Policy
}

// Metrics receives limiter decisions.
type Metrics interface {
	RecordRateLimitDecision(policy string, allowed bool)
	RecordRateLimitError(policy string)
}

type NoopMetrics struct{}

func (NoopMetrics) RecordRateLimitDecision(string, bool) {}
func (NoopMetrics) RecordRateLimitError(string)          {}

// ClientIdentity picks the key a request is counted under: the first
// X-Forwarded-For hop, else the peer address, else "unknown".
func ClientIdentity(forwardedFor, remoteIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		return ip
	}
	return "unknown"
}
