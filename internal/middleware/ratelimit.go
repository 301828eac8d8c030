package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/fieldmgr/fieldmgr/internal/cache"
	"github.com/fieldmgr/fieldmgr/internal/identity"
	"github.com/fieldmgr/fieldmgr/internal/metrics"
)

// MsgRateLimited is returned with 429 responses.
const MsgRateLimited = "Rate limit exceeded. Retry later."

// RateLimiter consumes one request from a subject's budget.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, subject cache.Subject, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for the RateLimit middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// Limiter is nil when no Redis is configured, which disables limiting.
	Limiter           RateLimiter
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// RateLimit returns middleware that applies a token bucket per caller.
// The caller is the identity stored by the Identity middleware, or the
// client IP for requests without one. Limiter errors fail open.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil || cfg.RequestsPerMinute <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := cache.Subject{
				Email: identity.EmailFromContext(r.Context()),
				IP:    clientIP(r),
			}

			result, err := cfg.Limiter.CheckRateLimit(r.Context(), subject, cfg.RequestsPerMinute, cfg.Burst)
			if err != nil {
				logger.ErrorContext(r.Context(), "rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				recorder.IncRateLimited()
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("caller", subject.Email),
					slog.String("ip", subject.IP),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, MsgRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr. Proxy headers are resolved
// earlier by the RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
