package sales

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/common"
)

// Handler exposes the sales invoice endpoints.
type Handler struct {
	service     *Service
	idempotency func(http.Handler) http.Handler
}

// HandlerConfig configures the Handler dependencies. Idempotency, when set,
// wraps invoice creation.
type HandlerConfig struct {
	Service     *Service
	Idempotency func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, idempotency: cfg.Idempotency}
}

// Routes mounts the invoice endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sales/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		if h.idempotency != nil {
			r.With(h.idempotency).Post("/", h.Create)
		} else {
			r.Post("/", h.Create)
		}
		r.Post("/quote", h.Quote)
		r.Get("/next-number", h.NextNumber)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/pdf", h.PDF)
	})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sales service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("sales request failed")
	}
	common.WriteError(w, err)
}

// Quote handles POST /sales/invoices/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req QuoteInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.service.Quote(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, quote)
}

// Create handles POST /sales/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req CreateInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	inv, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/sales/invoices/"+inv.ID)
	common.Data(w, http.StatusCreated, inv)
}

// List handles GET /sales/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Get handles GET /sales/invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, inv)
}

// PDF handles GET /sales/invoices/{id}/pdf.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	name, body, err := h.service.PDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Attachment(w, "application/pdf", name, body)
}

// NextNumber handles GET /sales/invoices/next-number.
func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	number, err := h.service.NextNumber(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]string{"invoiceNumber": number})
}
