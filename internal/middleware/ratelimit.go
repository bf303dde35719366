package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/cache"
)

// RateLimiter checks token buckets. *cache.Cache implements it.
type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, clientKey string, perMinute, burst int) (*cache.RateLimitResult, error)
	CheckAuthRateLimit(ctx context.Context, ip, email string, perMinute int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Enabled bool
	// General API limit, per authenticated user or per IP for anonymous callers.
	APIPerMinute int
	APIBurst     int
	// Credential endpoint limit, per IP and email.
	AuthPerMinute int
}

// maxPeekBody bounds how much of a login body is read to find the email.
const maxPeekBody = 64 << 10

// RateLimitAPI returns middleware that rate limits requests per user, or per
// IP when the request is anonymous. Place it after Auth to key by user.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	burst := cfg.APIBurst
	if burst <= 0 {
		burst = cfg.APIPerMinute
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.APIPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := "ip:" + getClientIP(r)
			if userID := auth.UserIDFromContext(r.Context()); userID != "" {
				clientKey = "user:" + userID
			}

			result, err := cfg.Limiter.CheckAPIRateLimit(r.Context(), clientKey, cfg.APIPerMinute, burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.APIPerMinute, result.Remaining, result.ResetAt)
			if !result.Allowed {
				rejectRateLimited(w, r, cfg.Logger, "api", result.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitAuth returns middleware that limits credential attempts per IP and
// the email in the JSON body. The body is restored for the handler.
func RateLimitAuth(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.AuthPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			email := peekEmail(r)
			ip := getClientIP(r)
			result, err := cfg.Limiter.CheckAuthRateLimit(r.Context(), ip, email, cfg.AuthPerMinute)
			if err != nil {
				cfg.Logger.Error("auth rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				rejectRateLimited(w, r, cfg.Logger, "auth", result.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the email field of a JSON body and puts the body back.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(raw, &body)
	return body.Email
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, logger *slog.Logger, kind string, retryAfter time.Duration) {
	seconds := max(int(retryAfter.Seconds()), 1)
	logger.Warn("rate limit exceeded",
		slog.String("type", kind),
		slog.String("ip", getClientIP(r)),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", seconds),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", seconds))
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// getClientIP returns the client address without its port. chi's RealIP
// middleware has already applied X-Forwarded-For and X-Real-IP.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
