package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitAPIPrefix is the Redis key prefix for per-client API limits.
	rateLimitAPIPrefix = "ratelimit:api:"
	// rateLimitAuthPrefix is the Redis key prefix for credential endpoint limits.
	rateLimitAuthPrefix = "ratelimit:auth:"
	// rateLimitTTL is the TTL for idle buckets.
	rateLimitTTL = 120 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript is a Lua script implementing the token bucket algorithm.
// It's atomic and handles token refill and consumption in a single operation.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- max tokens (bucket capacity)
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckAPIRateLimit applies the general API limit to a client key
// (a user id, or "ip:<addr>" for anonymous callers).
func (c *Cache) CheckAPIRateLimit(ctx context.Context, clientKey string, perMinute, burst int) (*RateLimitResult, error) {
	if perMinute <= 0 {
		return unlimited(burst), nil
	}
	key := rateLimitAPIPrefix + hashKey(clientKey)
	return c.checkRateLimit(ctx, key, float64(perMinute)/60.0, burst, int(rateLimitTTL.Seconds()))
}

// CheckAuthRateLimit limits credential attempts per IP and email pair.
// The burst equals the per-minute allowance.
func (c *Cache) CheckAuthRateLimit(ctx context.Context, ip, email string, perMinute int) (*RateLimitResult, error) {
	if perMinute <= 0 {
		return unlimited(0), nil
	}
	key := rateLimitAuthPrefix + hashKey(ip+"|"+strings.ToLower(strings.TrimSpace(email)))
	return c.checkRateLimit(ctx, key, float64(perMinute)/60.0, perMinute, int(rateLimitTTL.Seconds()))
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// checkRateLimit is the common rate limit implementation.
func (c *Cache) checkRateLimit(ctx context.Context, key string, rate float64, burst, ttl int) (*RateLimitResult, error) {
	now := time.Now().Unix()

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		rate, burst, now, ttl,
	).Int64Slice()

	if err != nil || len(result) != 3 {
		// Fail open on Redis errors - allow the request
		return unlimited(burst), nil //nolint:nilerr
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    time.Now().Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

// hashKey creates a truncated SHA256 hash so raw IPs and emails are not stored.
func hashKey(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
