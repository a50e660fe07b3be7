// Package app assembles the shared infrastructure and services used by the
// api and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/catalog"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/config"
	"github.com/noah-isme/toko-admin/internal/db"
	dbgen "github.com/noah-isme/toko-admin/internal/db/gen"
	"github.com/noah-isme/toko-admin/internal/lock"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/resilience"
	"github.com/noah-isme/toko-admin/internal/sales"
	"github.com/noah-isme/toko-admin/internal/tasks"
	"github.com/noah-isme/toko-admin/internal/user"
)

// Dependencies enumerates the services shared across modules.
type Dependencies struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *pgxpool.Pool
	Queries    *dbgen.Queries
	Redis      *redis.Client
	RedisOpt   asynq.RedisConnOpt
	Registry   *prometheus.Registry
	Invoices   *obs.InvoiceMetrics
	TaskClient *asynq.Client
	Catalog    *catalog.Service
	Sales      *sales.Service
	Users      *user.Service
	closers    []func() error
}

// New connects Postgres and Redis and builds the domain services. The
// returned Dependencies must be closed by the caller.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *Dependencies, err error) {
	d := &Dependencies{Config: cfg, Logger: logger, Registry: obs.NewRegistry()}
	defer func() {
		if err != nil {
			err = errors.Join(err, d.Close())
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Up(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info().Msg("migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ServiceName
	d.DB, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	d.closers = append(d.closers, func() error { d.DB.Close(); return nil })
	if err := d.DB.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	d.Queries = dbgen.New(d.DB)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	d.Redis = redis.NewClient(redisOpts)
	d.closers = append(d.closers, d.Redis.Close)
	if err := redisotel.InstrumentTracing(d.Redis); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := d.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	d.RedisOpt, err = asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	d.TaskClient = asynq.NewClient(d.RedisOpt)
	d.closers = append(d.closers, d.TaskClient.Close)

	d.Invoices = obs.NewInvoiceMetrics("toko", d.Registry)
	if err := d.buildServices(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) buildServices() error {
	cfg := d.Config
	var err error
	d.Catalog, err = catalog.NewService(catalog.ServiceConfig{
		Queries:     d.Queries,
		Cache:       catalog.NewCache(d.Redis, cfg.SearchCacheTTL),
		Metrics:     d.Invoices,
		Currency:    cfg.Currency,
		SearchLimit: cfg.SearchLimit,
	})
	if err != nil {
		return fmt.Errorf("initialise catalog service: %w", err)
	}

	mailLogger := d.Logger.With().Str("component", "mailer").Logger()
	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("mailer").
		WithLogger(mailLogger).
		WithMetrics(resilience.NewBreakerMetrics("toko", d.Registry))

	d.Sales, err = sales.NewService(sales.ServiceConfig{
		Store:          sales.NewPGStore(d.DB),
		Catalog:        d.Catalog,
		Enqueuer:       tasks.Enqueuer{Client: d.TaskClient},
		Mailer:         resilience.Mailer{Next: common.LogEmailSender{Logger: mailLogger}, Breaker: breaker},
		Locker:         lock.Locker{Client: d.Redis, Prefix: "toko:lock:"},
		Metrics:        d.Invoices,
		Currency:       cfg.Currency,
		DiscountRate:   cfg.DiscountRate,
		TaxRate:        cfg.TaxRate,
		NumberTemplate: cfg.InvoiceNumberTemplate,
		StoreName:      cfg.StoreName,
	})
	if err != nil {
		return fmt.Errorf("initialise sales service: %w", err)
	}

	d.Users, err = user.NewService(user.ServiceConfig{Queries: d.Queries})
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
