package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUserPrefix = "ratelimit:user:"
	rateLimitIPPrefix   = "ratelimit:ip:"
	rateLimitTTL        = 120 * time.Second
)

// Subject identifies who a rate limit bucket belongs to.
type Subject struct {
	// Email is the normalized caller identity. Empty for anonymous requests.
	Email string
	// IP is the client address, used when Email is empty.
	IP string
}

// key returns the Redis key for the subject's bucket. Identifiers are hashed
// so raw emails and addresses are never stored.
func (s Subject) key() string {
	if s.Email != "" {
		return rateLimitUserPrefix + hashKey(s.Email)
	}
	return rateLimitIPPrefix + hashKey(s.IP)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes one token atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckRateLimit consumes one token from the subject's bucket.
// ratePerMinute is the refill rate and burst the bucket capacity.
// A ratePerMinute of zero means unlimited.
//
// On Redis failure the returned result allows the request and err describes
// the failure, so callers can log it and fail open.
func (c *Cache) CheckRateLimit(ctx context.Context, subject Subject, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return allowAll(burst), nil
	}
	if burst <= 0 {
		burst = 1
	}

	ratePerSecond := float64(ratePerMinute) / 60.0
	now := time.Now()

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{subject.key()},
		ratePerSecond, burst, now.Unix(), int(rateLimitTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return allowAll(burst), fmt.Errorf("run token bucket: %w", err)
	}
	if len(result) != 3 {
		return allowAll(burst), fmt.Errorf("token bucket returned %d values", len(result))
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / ratePerSecond)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

func allowAll(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashKey returns a truncated SHA-256 of s.
func hashKey(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:8])
}
