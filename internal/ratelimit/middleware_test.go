package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lim, err := New(client, "ratelimit", "1-M")
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	counted := Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "static" },
	}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/users/register", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second request, got %d", rr2.Code)
	}
	if rr2.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header: %q", rr2.Header().Get("X-RateLimit-Limit"))
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestHandlerMiddlewareSeparatesClients(t *testing.T) {
	lim, err := New(nil, "ratelimit", "1-H")
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	counted := Handler{Limiter: lim, Key: ByClientIP}.Middleware(okHandler())

	for _, ip := range []string{"10.0.0.1:1000", "10.0.0.2:1000"} {
		req := httptest.NewRequest(http.MethodPost, "/users/register", nil)
		req.RemoteAddr = ip
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected %s to be allowed, got %d", ip, rr.Code)
		}
	}
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()

	lim, err := New(client, "ratelimit", "1-S")
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	mr.Close()
	called := false
	counted := Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "err" },
		OnError: func(error) { called = true },
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected handler to proceed on error, got %d", rr.Code)
	}
	if !called {
		t.Fatal("expected OnError callback to be invoked")
	}
}

func TestNewRejectsBadRate(t *testing.T) {
	if _, err := New(nil, "ratelimit", "five-per-minute"); err == nil {
		t.Fatal("expected error for malformed rate")
	}
}
