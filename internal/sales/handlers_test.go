package sales_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/sales"
)

type envelope[T any] struct {
	Data  T `json:"data"`
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newRouter(h *harness, idem func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	sales.NewHandler(sales.HandlerConfig{Service: h.svc, Idempotency: idem}).Routes(r)
	return r
}

func do[T any](t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope[T]) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope[T]
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestQuoteEndpoint(t *testing.T) {
	mug := product("Mug", "25.00", 10)
	lamp := product("Lamp", "50.00", 1)
	router := newRouter(newHarness(t, mug, lamp), nil)

	rec, env := do[sales.Quote](t, router, jsonRequest(t, http.MethodPost, "/sales/invoices/quote", map[string]any{
		"items": []map[string]any{
			{"productId": mug.ProductID, "quantity": 2},
			{"productId": lamp.ProductID, "quantity": 1},
		},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "97.20", env.Data.GrandTotal)
	require.Equal(t, "7.20", env.Data.TaxAmount)
}

func TestQuoteEndpointReportsOffendingProduct(t *testing.T) {
	mug := product("Mug", "25.00", 1)
	router := newRouter(newHarness(t, mug), nil)

	rec, env := do[any](t, router, jsonRequest(t, http.MethodPost, "/sales/invoices/quote", map[string]any{
		"items": []map[string]any{{"productId": mug.ProductID, "quantity": 5}},
	}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "INVOICE_INVALID", env.Error.Code)

	var details sales.Violation
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	require.Equal(t, sales.Violation{Field: "quantity", ProductID: mug.ProductID, Reason: "exceeds stock"}, details)
}

func TestQuoteEndpointRejectsUnknownFields(t *testing.T) {
	router := newRouter(newHarness(t), nil)
	rec, env := do[any](t, router, jsonRequest(t, http.MethodPost, "/sales/invoices/quote", map[string]any{
		"items":    []any{},
		"discount": "0.5",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestInvoiceEndpoints(t *testing.T) {
	mug := product("Mug", "12.50", 3)
	h := newHarness(t, mug)
	router := newRouter(h, nil)

	rec, created := do[sales.Invoice](t, router, jsonRequest(t, http.MethodPost, "/sales/invoices", map[string]any{
		"customerName":  "Siti",
		"customerEmail": "siti@example.com",
		"customerPhone": "0812",
		"date":          "2024-02-29T10:00:00Z",
		"items":         []map[string]any{{"productId": mug.ProductID, "quantity": 1}},
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/sales/invoices/"+created.Data.ID, rec.Header().Get("Location"))
	require.Equal(t, "INV-20240229-000001", created.Data.InvoiceNumber)
	require.Equal(t, "12.15", created.Data.GrandTotal)

	rec, got := do[sales.Invoice](t, router, httptest.NewRequest(http.MethodGet, "/sales/invoices/"+created.Data.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, got.Data.Items, 1)

	rec, list := do[[]sales.Invoice](t, router, httptest.NewRequest(http.MethodGet, "/sales/invoices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Data, 1)

	rec, _ = do[any](t, router, httptest.NewRequest(http.MethodGet, "/sales/invoices/"+created.Data.ID+"/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-inv-20240229-000001.pdf")
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec, next := do[map[string]string](t, router, httptest.NewRequest(http.MethodGet, "/sales/invoices/next-number", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "INV-20240131-000002", next.Data["invoiceNumber"])

	rec, missing := do[any](t, router, httptest.NewRequest(http.MethodGet, "/sales/invoices/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", missing.Error.Code)
}

func TestCreateEndpointIsIdempotent(t *testing.T) {
	mug := product("Mug", "1.00", 10)
	h := newHarness(t, mug)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	router := newRouter(h, common.Idem{R: client}.Middleware)

	body := map[string]any{
		"customerName":  "Siti",
		"customerEmail": "siti@example.com",
		"customerPhone": "0812",
		"items":         []map[string]any{{"productId": mug.ProductID, "quantity": 2}},
	}
	first := jsonRequest(t, http.MethodPost, "/sales/invoices", body)
	first.Header.Set("Idempotency-Key", "abc")
	rec, _ := do[sales.Invoice](t, router, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	replay := jsonRequest(t, http.MethodPost, "/sales/invoices", body)
	replay.Header.Set("Idempotency-Key", "abc")
	rec, env := do[any](t, router, replay)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "IDEMPOTENT_REPLAY", env.Error.Code)
	require.Equal(t, int32(8), h.store.stockOf(mug.ProductID))
}

func TestCreateEndpointAcceptsCorrectedCartUnderSameKey(t *testing.T) {
	mug := product("Mug", "1.00", 3)
	h := newHarness(t, mug)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	router := newRouter(h, common.Idem{R: client}.Middleware)

	body := func(qty int) map[string]any {
		return map[string]any{
			"customerName":  "Siti",
			"customerEmail": "siti@example.com",
			"customerPhone": "0812",
			"items":         []map[string]any{{"productId": mug.ProductID, "quantity": qty}},
		}
	}

	tooMany := jsonRequest(t, http.MethodPost, "/sales/invoices", body(5))
	tooMany.Header.Set("Idempotency-Key", "cart-1")
	rec, env := do[any](t, router, tooMany)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "INVOICE_INVALID", env.Error.Code)

	corrected := jsonRequest(t, http.MethodPost, "/sales/invoices", body(3))
	corrected.Header.Set("Idempotency-Key", "cart-1")
	rec, _ = do[sales.Invoice](t, router, corrected)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, int32(0), h.store.stockOf(mug.ProductID))
}
