package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/loan-risk/pkg/config"
)

// fixedWindowScript increments the counter for the current window and sets its
// expiry on first use. Returns {count, ttl_ms}.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`

// Result describes the outcome of a rate limit check
type Result struct {
	Allowed     bool
	Limit       int
	Remaining   int
	Window      time.Duration
	RetryAfter  time.Duration
	IdentityKey string
	EndpointKey string
}

// Limiter is a Redis-backed fixed-window limiter
type Limiter struct {
	client redis.Scripter
	script *redis.Script
	cfg    config.RateLimitConfig
}

// NewLimiter creates a limiter backed by client
func NewLimiter(client redis.Scripter, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		script: redis.NewScript(fixedWindowScript),
		cfg:    cfg,
	}
}

func (l *Limiter) key(endpoint, identity string) string {
	return fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)
}

// Allow records one request for identity on endpoint and reports whether it
// fits in the current window. A disabled limiter or a non-positive limit always allows.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string) (*Result, error) {
	window := l.cfg.Window()
	result := &Result{
		Allowed:     true,
		Limit:       l.cfg.Limit,
		Remaining:   l.cfg.Limit,
		Window:      window,
		IdentityKey: identity,
		EndpointKey: endpoint,
	}

	if !l.cfg.Enabled || l.cfg.Limit <= 0 {
		return result, nil
	}

	vals, err := l.script.Run(ctx, l.client, []string{l.key(endpoint, identity)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("rate limit script returned %d values", len(vals))
	}

	count, ttlMs := int(vals[0]), vals[1]
	result.Remaining = l.cfg.Limit - count
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if count > l.cfg.Limit {
		result.Allowed = false
		result.RetryAfter = time.Duration(ttlMs) * time.Millisecond
		if result.RetryAfter <= 0 {
			result.RetryAfter = window
		}
	}

	return result, nil
}
