package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// The whole check-and-increment runs inside redis so concurrent instances
// cannot both take the last unit. The key's TTL is the window.
var allowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current == 0 then
	redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
	return 1
end
if current >= tonumber(ARGV[1]) then
	return 0
end
redis.call('INCR', KEYS[1])
return 1
`)

// RedisLimiter shares counters across instances. When redis cannot be
// reached it lets the request through and logs a warning.
type RedisLimiter struct {
	policy  Policy
	client  redis.Scripter
	logger  *zap.Logger
	metrics Metrics
}

func NewRedisLimiter(policy Policy, client redis.Scripter, logger *zap.Logger, metrics Metrics) (*RedisLimiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RedisLimiter{policy: policy, client: client, logger: logger, metrics: metrics}, nil
}

func (l *RedisLimiter) Policy() Policy { return l.policy }

func (l *RedisLimiter) Allow(ctx context.Context, identity string) bool {
	allowed, err := allowScript.Run(ctx, l.client,
		[]string{l.key(identity)},
		l.policy.Max, l.policy.Window.Milliseconds(),
	).Int()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request",
			zap.String("policy", l.policy.Name),
			zap.Error(err),
		)
		l.metrics.RecordRateLimitError(l.policy.Name)
		return true
	}
	return allowed == 1
}

func (l *RedisLimiter) key(identity string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.policy.Name, identity)
}
