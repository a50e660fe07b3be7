package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-admin/internal/common"
)

// Handler exposes the registration endpoint.
type Handler struct {
	service   *Service
	rateLimit func(http.Handler) http.Handler
}

// HandlerConfig configures the Handler dependencies. RateLimit, when set,
// wraps registration.
type HandlerConfig struct {
	Service   *Service
	RateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, rateLimit: cfg.RateLimit}
}

// Routes mounts the user endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		if h.rateLimit != nil {
			r = r.With(h.rateLimit)
		}
		r.Post("/register", h.Register)
	})
}

// Register handles POST /users/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "user service not configured", nil)
		return
	}
	var req RegisterInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	created, err := h.service.Register(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, created)
}
