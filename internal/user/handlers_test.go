package user_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/ratelimit"
	"github.com/noah-isme/toko-admin/internal/user"
)

func register(t *testing.T, h http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/users/register", &buf)
	req.RemoteAddr = "203.0.113.7:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpointIsRateLimited(t *testing.T) {
	lim, err := ratelimit.New(nil, "test", "2-M")
	require.NoError(t, err)

	r := chi.NewRouter()
	user.NewHandler(user.HandlerConfig{
		Service:   newService(t, newFakeUsers()),
		RateLimit: ratelimit.Handler{Limiter: lim, Key: ratelimit.ByClientIP}.Middleware,
	}).Routes(r)

	rec := register(t, r, map[string]any{"firstName": "A", "lastName": "B", "email": "a@example.com", "password": "password1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")

	rec = register(t, r, map[string]any{"firstName": "A", "lastName": "B", "email": "a@example.com", "password": "password1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "EMAIL_ALREADY_USED")

	rec = register(t, r, map[string]any{"firstName": "A", "lastName": "B", "email": "c@example.com", "password": "password1"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
