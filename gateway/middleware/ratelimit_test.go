package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"bounty": {RequestsPerSecond: 1, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	handler := limiter.Middleware("bounty")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}

	now = now.Add(time.Second)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected request after refill to succeed, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"bounty": {RequestsPerSecond: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("bounty")(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/v1/transactions", nil)
	first.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	second := httptest.NewRequest(http.MethodPost, "/v1/transactions", nil)
	second.Header.Set("X-Real-IP", "10.0.0.9")

	for _, req := range []*http.Request{first, second} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected request from %s to succeed, got %d", clientID(req), res.Code)
		}
	}
	if got := clientID(first); got != "10.0.0.1" {
		t.Fatalf("unexpected client id %q", got)
	}
}

func TestRateLimiterIgnoresUnknownKeys(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{}, nil)
	handler := limiter.Middleware("reads")(okHandler())
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/treasury", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, res.Code)
		}
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"bounty": {RequestsPerSecond: 1, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	limiter.obtainLimiter("bounty|a", RateLimit{RequestsPerSecond: 1})
	now = now.Add(10 * time.Minute)
	limiter.obtainLimiter("bounty|b", RateLimit{RequestsPerSecond: 1})
	if _, ok := limiter.visitors["bounty|a"]; ok {
		t.Fatalf("expected idle visitor to be evicted")
	}
}

func TestRequestIDAssignsAndPreserves(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || res.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id, got %q / %q", seen, res.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c1b1e-7f6e-4d1a-9a59-0b5f0b2c8e11")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "6f1c1b1e-7f6e-4d1a-9a59-0b5f0b2c8e11" {
		t.Fatalf("expected client request id to be preserved, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not a uuid" {
		t.Fatalf("malformed request ids must be replaced")
	}
}
