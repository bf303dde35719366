package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHashKey_Deterministic(t *testing.T) {
	t.Parallel()

	if hashKey("192.168.1.100") != hashKey("192.168.1.100") {
		t.Error("Same input should produce same hash")
	}
}

func TestHashKey_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"ip and email", "10.0.0.1|alice@example.com"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := hashKey(tt.in); len(got) != 16 {
				t.Errorf("hashKey(%q) length = %d, want 16", tt.in, len(got))
			}
		})
	}
}

func TestHashKey_Different(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
	}{
		{"different IPv4", "192.168.1.1", "192.168.1.2"},
		{"IPv4 vs IPv6", "127.0.0.1", "::1"},
		{"different email", "1.1.1.1|a@x.com", "1.1.1.1|b@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if hashKey(tt.a) == hashKey(tt.b) {
				t.Errorf("hashKey(%q) == hashKey(%q)", tt.a, tt.b)
			}
		})
	}
}

func TestRateLimit_UnlimitedWhenDisabled(t *testing.T) {
	t.Parallel()

	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer c.Close()

	res, err := c.CheckAPIRateLimit(context.Background(), "user-1", 0, 10)
	if err != nil || !res.Allowed {
		t.Fatalf("expected unlimited, got %+v %v", res, err)
	}
	res, err = c.CheckAuthRateLimit(context.Background(), "1.2.3.4", "a@b.c", 0)
	if err != nil || !res.Allowed {
		t.Fatalf("expected unlimited, got %+v %v", res, err)
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewWithClient(client)
	defer c.Close()

	res, err := c.CheckAuthRateLimit(context.Background(), "1.2.3.4", "a@b.c", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Error("rate limiter should fail open")
	}
}

func TestDenyAccessToken_ExpiredIsNoop(t *testing.T) {
	t.Parallel()

	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	defer c.Close()

	if err := c.DenyAccessToken(context.Background(), "jti", time.Now().Add(-time.Second)); err != nil {
		t.Errorf("expired token should not touch Redis: %v", err)
	}
	if err := c.StoreRefreshToken(context.Background(), "jti", "u", time.Now().Add(-time.Second)); err != nil {
		t.Errorf("expired refresh token should not touch Redis: %v", err)
	}
}
