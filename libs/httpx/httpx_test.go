package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("a"), nil, mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestWithRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id echoed, got %q / %q", seen, rw.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected incoming id kept, got %q", seen)
	}
}

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
			t.Fatalf("hit %d should pass", i)
		}
	}
	if ok, _ := l.Allow(context.Background(), "1.2.3.4"); ok {
		t.Fatal("third hit should be limited")
	}
	if ok, _ := l.Allow(context.Background(), "5.6.7.8"); !ok {
		t.Fatal("other client should pass")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
		t.Fatal("new window should pass")
	}
}

func TestMemoryLimiterDefaultsNonPositiveLimit(t *testing.T) {
	l := NewMemoryLimiter(0, 0)
	if l.limit != 60 || l.window != time.Minute {
		t.Fatalf("expected 60 per minute, got %d per %s", l.limit, l.window)
	}
	for i := 0; i < 60; i++ {
		if ok, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
			t.Fatalf("hit %d should pass", i)
		}
	}
	if ok, _ := l.Allow(context.Background(), "1.2.3.4"); ok {
		t.Fatal("hit 61 should be limited")
	}
}

func TestRedisLimiterKey(t *testing.T) {
	for _, prefix := range []string{"tavolo:ratelimit:reservations", "tavolo:ratelimit:reservations:"} {
		l := NewRedisLimiter(nil, 10, time.Minute, prefix)
		if got := l.key("1.2.3.4"); got != "tavolo:ratelimit:reservations:1.2.3.4" {
			t.Fatalf("prefix %q: key = %q", prefix, got)
		}
	}
	if got := NewRedisLimiter(nil, 10, time.Minute, "").key("1.2.3.4"); got != "rl:1.2.3.4" {
		t.Fatalf("default key = %q", got)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestWithRateLimitFailModes(t *testing.T) {
	open := WithRateLimit(failingLimiter{}, discardLogger(), true)(okHandler())
	rw := httptest.NewRecorder()
	open.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("fail-open expected 200, got %d", rw.Code)
	}

	closed := WithRateLimit(failingLimiter{}, discardLogger(), false)(okHandler())
	rw = httptest.NewRecorder()
	closed.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed expected 503, got %d", rw.Code)
	}

	limited := WithRateLimit(NewMemoryLimiter(1, time.Minute), discardLogger(), false)(okHandler())
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rw = httptest.NewRecorder()
		limited.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
		if rw.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rw.Code)
		}
	}
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	if got := ClientKey(req); got != "10.0.0.1" {
		t.Fatalf("ClientKey = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:5555"
	if got := ClientKey(req); got != "192.168.1.9" {
		t.Fatalf("ClientKey = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := Chain(okHandler(), WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://trattoria.example"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         10 * time.Minute,
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/slots", nil)
	req.Header.Set("Origin", "https://trattoria.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://trattoria.example" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
	if rw.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected max age %q", rw.Header().Get("Access-Control-Max-Age"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be allowed")
	}
}

func TestWithRecover(t *testing.T) {
	h := WithRecover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}
