package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-admin/internal/catalog"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/health"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/ratelimit"
	"github.com/noah-isme/toko-admin/internal/sales"
	"github.com/noah-isme/toko-admin/internal/security"
	"github.com/noah-isme/toko-admin/internal/user"
)

// RouterConfig selects the middleware stack and the modules mounted by NewRouter.
type RouterConfig struct {
	ServiceName string
	Logger      zerolog.Logger
	Registry    *prometheus.Registry
	Health      health.Handler
	CORSOrigins []string
	BodyLimit   int64
	EnableHSTS  bool
	Mounts      []func(chi.Router)
}

// NewRouter builds the HTTP handler shared by every module.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(middleware.Recoverer)
	if cfg.Registry != nil {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics("toko", nil, cfg.Registry)}.Middleware)
	}
	r.Use(obs.SpanRoute)
	r.Use(security.Headers{EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.CORS(cfg.CORSOrigins))
	r.Use(security.BodyLimit{Max: cfg.BodyLimit}.Middleware)

	if cfg.Registry != nil {
		r.Handle("/metrics", obs.MetricsHandler(cfg.Registry))
	}
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)
	for _, mount := range cfg.Mounts {
		mount(r)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "toko-admin"
	}
	return otelhttp.NewHandler(r, name)
}

// Handler wires the catalog, sales and user modules onto the shared router.
func (d *Dependencies) Handler() (http.Handler, error) {
	cfg := d.Config
	registerLimit, err := ratelimit.New(d.Redis, "toko:ratelimit:register", cfg.RegisterLimit)
	if err != nil {
		return nil, err
	}
	limited := ratelimit.Handler{
		Limiter: registerLimit,
		Key:     ratelimit.ByClientIP,
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("register rate limit store unavailable") },
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	return NewRouter(RouterConfig{
		ServiceName: cfg.ServiceName,
		Logger:      d.Logger,
		Registry:    d.Registry,
		Health:      health.Handler{Checker: health.Pinger{DB: d.DB, Redis: d.Redis}},
		CORSOrigins: cfg.CORSAllowedOrigins,
		BodyLimit:   cfg.BodyLimitBytes,
		EnableHSTS:  cfg.IsProduction(),
		Mounts: []func(chi.Router){
			catalog.NewHandler(catalog.HandlerConfig{Service: d.Catalog}).Routes,
			sales.NewHandler(sales.HandlerConfig{Service: d.Sales, Idempotency: idem.Middleware}).Routes,
			user.NewHandler(user.HandlerConfig{Service: d.Users, RateLimit: limited.Middleware}).Routes,
		},
	}), nil
}
