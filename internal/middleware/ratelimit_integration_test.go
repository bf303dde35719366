//go:build integration

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/xscan/xscan/internal/cache"
	"github.com/xscan/xscan/internal/testutil"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "TEST_REDIS_URL")

	ctx := context.Background()
	c, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

// TestRateLimitAPI_Concurrency drives the Redis token bucket through the
// middleware from many goroutines at once.
func TestRateLimitAPI_Concurrency(t *testing.T) {
	c := newTestCache(t)

	const burst = 5
	handler := RateLimitAPI(RateLimitConfig{
		Limiter:      c,
		Enabled:      true,
		APIPerMinute: 10,
		APIBurst:     burst,
	})(okHandler())

	var allowed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/streamers", nil)
				req.RemoteAddr = "203.0.113.50:4000"
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				switch rec.Code {
				case http.StatusOK:
					atomic.AddInt64(&allowed, 1)
				case http.StatusTooManyRequests:
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	t.Logf("%d allowed, %d rejected", allowed, rejected)
	if allowed > burst+1 {
		t.Errorf("too many requests allowed: %d", allowed)
	}
	if allowed+rejected != 60 {
		t.Errorf("unexpected total %d", allowed+rejected)
	}
}

// TestRateLimitAuth_SeparateBuckets checks that distinct emails from one IP
// do not share a bucket.
func TestRateLimitAuth_SeparateBuckets(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.CheckAuthRateLimit(ctx, "198.51.100.20", "a@example.com", 3)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	res, err := c.CheckAuthRateLimit(ctx, "198.51.100.20", "a@example.com", 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("fourth attempt for same email should be limited")
	}

	res, err = c.CheckAuthRateLimit(ctx, "198.51.100.20", "b@example.com", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Error("different email should have its own bucket")
	}
}
