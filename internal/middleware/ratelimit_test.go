package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fieldmgr/fieldmgr/internal/cache"
	"github.com/fieldmgr/fieldmgr/internal/identity"
	"github.com/fieldmgr/fieldmgr/internal/metrics"
)

type stubLimiter struct {
	result   *cache.RateLimitResult
	err      error
	subjects []cache.Subject
}

func (s *stubLimiter) CheckRateLimit(ctx context.Context, subject cache.Subject, ratePerMinute, burst int) (*cache.RateLimitResult, error) {
	s.subjects = append(s.subjects, subject)
	return s.result, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitRejects(t *testing.T) {
	resetAt := time.Now().Add(3 * time.Second)
	limiter := &stubLimiter{result: &cache.RateLimitResult{Allowed: false, ResetAt: resetAt, RetryAfter: 3 * time.Second}}
	recorder := metrics.NewInMemory()

	handler := RateLimit(RateLimitConfig{
		Metrics:           recorder,
		Limiter:           limiter,
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             5,
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/fields", nil)
	req = req.WithContext(identity.WithEmail(req.Context(), "a@x.io"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Errorf("Retry-After = %q, want 3", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
	if got, want := rec.Header().Get("X-RateLimit-Reset"), strconv.FormatInt(resetAt.Unix(), 10); got != want {
		t.Errorf("X-RateLimit-Reset = %q, want %q", got, want)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != MsgRateLimited {
		t.Errorf("error = %q, want %q", body.Error, MsgRateLimited)
	}
	if recorder.Snapshot().RateLimited != 1 {
		t.Error("expected rate limited counter to increment")
	}
	if len(limiter.subjects) != 1 || limiter.subjects[0].Email != "a@x.io" {
		t.Errorf("unexpected subjects %+v", limiter.subjects)
	}
}

func TestRateLimitHeadersOnAllowed(t *testing.T) {
	resetAt := time.Unix(1_700_000_030, 0)
	limiter := &stubLimiter{result: &cache.RateLimitResult{Allowed: true, Remaining: 4, ResetAt: resetAt}}

	handler := RateLimit(RateLimitConfig{
		Limiter:           limiter,
		Enabled:           true,
		RequestsPerMinute: 120,
		Burst:             5,
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req = req.WithContext(identity.WithEmail(req.Context(), "a@x.io"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := map[string]string{
		"X-RateLimit-Limit":     "120",
		"X-RateLimit-Remaining": "4",
		"X-RateLimit-Reset":     "1700000030",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if got := rec.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After = %q on allowed request, want empty", got)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{
		result: &cache.RateLimitResult{Allowed: true},
		err:    errors.New("redis down"),
	}

	handler := RateLimit(RateLimitConfig{
		Limiter:           limiter,
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             5,
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/fields", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if limiter.subjects[0].IP != "10.1.2.3" || limiter.subjects[0].Email != "" {
		t.Errorf("unexpected subject %+v", limiter.subjects[0])
	}
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &stubLimiter{}

	for _, cfg := range []RateLimitConfig{
		{Limiter: limiter, Enabled: false, RequestsPerMinute: 60},
		{Limiter: nil, Enabled: true, RequestsPerMinute: 60},
		{Limiter: limiter, Enabled: true, RequestsPerMinute: 0},
	} {
		rec := httptest.NewRecorder()
		RateLimit(cfg)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
	if len(limiter.subjects) != 0 {
		t.Errorf("limiter should not be consulted, got %d calls", len(limiter.subjects))
	}
}

func TestRateLimitWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	handler := RateLimit(RateLimitConfig{
		Limiter:           cache.NewFromClient(client),
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             2,
	})(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/fields", nil)
		req = req.WithContext(identity.WithEmail(req.Context(), addr))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("a@x.io"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := send("a@x.io"); code != http.StatusOK {
		t.Fatalf("second request: %d", code)
	}
	if code := send("a@x.io"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", code)
	}
	if code := send("b@x.io"); code != http.StatusOK {
		t.Fatalf("other caller: %d, want 200", code)
	}
}
