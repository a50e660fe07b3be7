package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/common"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	calls := 0
	handler := common.Idem{R: newRedis(t), TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sales/invoices", nil)
		req.Header.Set("Idempotency-Key", "abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusCreated, send().Code)
	replay := send()
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Contains(t, replay.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	status := http.StatusInternalServerError
	handler := common.Idem{R: newRedis(t), TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sales/invoices", nil)
	req.Header.Set("Idempotency-Key", "retry-me")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	status = http.StatusCreated
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestIdempotencyReleasesKeyOnClientError(t *testing.T) {
	for _, first := range []int{http.StatusUnprocessableEntity, http.StatusConflict} {
		status := first
		calls := 0
		handler := common.Idem{R: newRedis(t), TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(status)
		}))
		send := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/sales/invoices", nil)
			req.Header.Set("Idempotency-Key", "fix-cart")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			return rr
		}

		require.Equal(t, first, send().Code)
		status = http.StatusCreated
		require.Equal(t, http.StatusCreated, send().Code, "corrected retry after %d", first)
		require.Equal(t, http.StatusConflict, send().Code)
		require.Equal(t, 2, calls)
	}
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	calls := 0
	handler := common.Idem{R: newRedis(t)}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	require.Equal(t, 2, calls)
}
