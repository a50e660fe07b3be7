package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	LogFormat          string
	LogLevel           string
	OTLPEndpoint       string
	ServiceName        string

	Currency              string
	DiscountRate          decimal.Decimal
	TaxRate               decimal.Decimal
	InvoiceNumberTemplate string
	StoreName             string

	SearchLimit     int
	SearchCacheTTL  time.Duration
	IdempotencyTTL  time.Duration
	BodyLimitBytes  int64
	RegisterLimit   string
	TaskConcurrency int
	MigrateOnStart  bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	discount, err := parseRate("INVOICE_DISCOUNT_RATE", k.String("INVOICE_DISCOUNT_RATE"), "0.10")
	if err != nil {
		return nil, err
	}
	tax, err := parseRate("INVOICE_TAX_RATE", k.String("INVOICE_TAX_RATE"), "0.08")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		OTLPEndpoint:       strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ServiceName:        valueOrDefault(k.String("OTEL_SERVICE_NAME"), "toko-admin"),

		Currency:              strings.ToUpper(valueOrDefault(k.String("INVOICE_CURRENCY"), "USD")),
		DiscountRate:          discount,
		TaxRate:               tax,
		InvoiceNumberTemplate: valueOrDefault(k.String("INVOICE_NUMBER_TEMPLATE"), "INV-{YYYY}{MM}{DD}-{SEQ6}"),
		StoreName:             valueOrDefault(k.String("STORE_NAME"), "Toko"),

		SearchLimit:     parseInt(k.String("PRODUCT_SEARCH_LIMIT"), 20),
		SearchCacheTTL:  parseDuration(k.String("PRODUCT_SEARCH_CACHE_TTL"), "60s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		RegisterLimit:   valueOrDefault(k.String("REGISTER_RATE_LIMIT"), "5-M"),
		TaskConcurrency: parseInt(k.String("TASK_CONCURRENCY"), 5),
		MigrateOnStart:  parseBool(k.String("MIGRATE_ON_START")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.SearchLimit <= 0 {
		return nil, errors.New("PRODUCT_SEARCH_LIMIT must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseRate accepts a fraction in [0, 1).
// maxRatePlaces matches the NUMERIC(7, 6) columns invoice rates are stored in.
const maxRatePlaces = 6

func parseRate(key, value, fallback string) (decimal.Decimal, error) {
	value = valueOrDefault(value, fallback)
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", key, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, fmt.Errorf("%s must be within [0, 1), got %s", key, value)
	}
	if !rate.Equal(rate.Truncate(maxRatePlaces)) {
		return decimal.Decimal{}, fmt.Errorf("%s must have at most %d decimal places, got %s", key, maxRatePlaces, value)
	}
	return rate, nil
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
