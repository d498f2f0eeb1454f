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

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	FeeRatePercent  decimal.Decimal
	FeeFixed        decimal.Decimal
	DefaultCurrency money.Currency
	QuoteCacheTTL   time.Duration
	// QuoteRateLimit is the per-client request budget per minute on quote
	// endpoints. Zero disables limiting.
	QuoteRateLimit int
	MaxBodyBytes   int64

	LogFormat          string
	LogLevel           string
	MetricsNamespace   string
	MetricsBuckets     string
	TracingEnabled     bool
	TracingEndpoint    string
	TracingSampleRatio float64
	ServiceName        string

	WorkerConcurrency int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	feeRate, err := parseDecimal(k.String("PRICING_FEE_RATE_PERCENT"), "0")
	if err != nil {
		return nil, fmt.Errorf("PRICING_FEE_RATE_PERCENT: %w", err)
	}
	feeFixed, err := parseDecimal(k.String("PRICING_FEE_FIXED"), "0")
	if err != nil {
		return nil, fmt.Errorf("PRICING_FEE_FIXED: %w", err)
	}
	if feeRate.IsNegative() || feeFixed.IsNegative() {
		return nil, errors.New("pricing fees must not be negative")
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		FeeRatePercent:     feeRate,
		FeeFixed:           feeFixed,
		DefaultCurrency:    money.ParseCurrency(k.String("PRICING_DEFAULT_CURRENCY")),
		QuoteCacheTTL:      parseDuration(k.String("QUOTE_CACHE_TTL"), "5m"),
		QuoteRateLimit:     parseInt(k.String("RATE_LIMIT_QUOTE_PER_MINUTE"), 120),
		MaxBodyBytes:       int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:   valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pricing"),
		MetricsBuckets:     k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:     parseBool(k.String("OBS_TRACING_ENABLED")),
		TracingEndpoint:    strings.TrimSpace(k.String("OBS_TRACING_ENDPOINT")),
		TracingSampleRatio: parseFloat(k.String("OBS_TRACING_SAMPLE_RATIO"), 1),
		ServiceName:        valueOrDefault(k.String("OBS_SERVICE_NAME"), "backend-pricing"),
		WorkerConcurrency:  parseInt(k.String("WORKER_CONCURRENCY"), 5),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// FeeSchedule returns the transaction fee applied to order quotes.
func (c *Config) FeeSchedule() pricing.FeeSchedule {
	return pricing.FeeSchedule{RatePercent: c.FeeRatePercent, Fixed: c.FeeFixed}
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

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "prod", "production":
		return true
	default:
		return false
	}
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
		return value
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

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	return decimal.NewFromString(valueOrDefault(strings.TrimSpace(value), fallback))
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
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
