package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter, arming its expiry on the
// first hit, and returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

// redisLimiter is a fixed-window counter shared by every replica.
type redisLimiter struct {
	rdb    redis.Scripter
	prefix string
	cfg    RateLimitConfig
}

// NewRedisLimiter returns a Limiter storing counters under "<prefix>:<key>".
func NewRedisLimiter(rdb redis.Scripter, prefix string, cfg RateLimitConfig) Limiter {
	return &redisLimiter{rdb: rdb, prefix: prefix, cfg: cfg}
}

func (l *redisLimiter) Config() RateLimitConfig { return l.cfg }

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	window := l.cfg.Window
	if window < time.Millisecond {
		window = time.Minute
	}

	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("httpx: redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("httpx: redis rate limit: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	d := Decision{
		Allowed:   count <= l.cfg.RequestsPerWindow,
		Limit:     l.cfg.RequestsPerWindow,
		Remaining: max(l.cfg.RequestsPerWindow-count, 0),
	}
	if !d.Allowed {
		d.RetryAfter = window
		if ttl > 0 {
			d.RetryAfter = ttl
		}
	}
	return d, nil
}
