package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/platform/auth"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func newRateLimitRequest(e *echo.Echo, actor *clinic.Actor) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(okHandler)

	for i := 0; i < 5; i++ {
		c, rec := newRateLimitRequest(e, nil)
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(okHandler)

	for i := 0; i < 2; i++ {
		c, _ := newRateLimitRequest(e, nil)
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	c, rec := newRateLimitRequest(e, nil)
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}
	retry, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || retry < 1 {
		t.Errorf("expected Retry-After >= 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining '0', got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_PerActorIsolation(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	alice := clinic.Actor{ID: uuid.New(), Role: clinic.RolePatient}
	bob := clinic.Actor{ID: uuid.New(), Role: clinic.RolePatient}

	c, _ := newRateLimitRequest(e, &alice)
	if err := handler(c); err != nil {
		t.Fatalf("alice first request: %v", err)
	}
	c, _ = newRateLimitRequest(e, &alice)
	if err := handler(c); err == nil {
		t.Fatal("alice second request: expected rate limit error")
	}
	// Same IP, different actor: separate bucket.
	c, _ = newRateLimitRequest(e, &bob)
	if err := handler(c); err != nil {
		t.Fatalf("bob first request: %v", err)
	}
	// Anonymous callers are keyed by IP and are unaffected by actor buckets.
	c, _ = newRateLimitRequest(e, nil)
	if err := handler(c); err != nil {
		t.Fatalf("anonymous first request: %v", err)
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 20 || cfg.BurstSize != 40 || cfg.IdleTTL != 10*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	b := newTokenBucket(2, 1, start)

	if ok, _ := b.take(start); !ok {
		t.Fatal("expected the initial token")
	}
	ok, retry := b.take(start)
	if ok || retry != 1 {
		t.Fatalf("expected empty bucket with retry 1, got %v, %d", ok, retry)
	}
	if ok, _ := b.take(start.Add(600 * time.Millisecond)); !ok {
		t.Error("expected a refilled token after 600ms at 2/s")
	}
}

func TestTokenBucket_ZeroRate(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(0, 1, now)
	b.take(now)
	if ok, retry := b.take(now.Add(time.Hour)); ok || retry != 1 {
		t.Errorf("expected no refill and retry 1, got %v, %d", ok, retry)
	}
}

func TestBucketStore_ReusesAndSweeps(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := newBucketStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	store.now = func() time.Time { return now }

	b1, _ := store.get("key1")
	b2, _ := store.get("key1")
	if b1 != b2 {
		t.Error("expected same bucket instance for same key")
	}
	if b3, _ := store.get("key2"); b3 == b1 {
		t.Error("expected different bucket for different key")
	}
	if store.len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", store.len())
	}

	now = now.Add(5 * time.Minute)
	store.get("key3")
	if store.len() != 1 {
		t.Errorf("expected idle buckets to be swept, got %d", store.len())
	}
}
