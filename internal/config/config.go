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
	"golang.org/x/text/currency"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Currency is the ISO-4217 code all cart prices are denominated in.
	Currency string

	CartMaxItems      int
	CartMaxQtyPerLine int

	CleanupAgeDays   int
	CleanupBatchSize int
	CleanupInterval  time.Duration

	ProductCacheTTL time.Duration
	// PromoPercent applies a flat discount stage to the selected subtotal
	// when positive. "0" disables the stage.
	PromoPercent string

	AuditEnabled bool

	LogFormat string
	LogLevel  string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Currency:           valueOrDefault(k.String("CURRENCY"), "USD"),
		CartMaxItems:       parseInt(k.String("CART_MAX_ITEMS"), 100),
		CartMaxQtyPerLine:  parseInt(k.String("CART_MAX_QTY_PER_LINE"), 99),
		CleanupAgeDays:     parseInt(k.String("CLEANUP_AGE_DAYS"), 30),
		CleanupBatchSize:   parseInt(k.String("CLEANUP_BATCH_SIZE"), 500),
		CleanupInterval:    parseDuration(k.String("CLEANUP_INTERVAL"), "1h"),
		ProductCacheTTL:    parseDuration(k.String("PRODUCT_CACHE_TTL"), "5m"),
		PromoPercent:       valueOrDefault(k.String("PROMO_PERCENT"), "0"),
		AuditEnabled:       parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if _, err := currency.ParseISO(cfg.Currency); err != nil {
		return nil, fmt.Errorf("CURRENCY %q is not a valid ISO-4217 code: %w", cfg.Currency, err)
	}
	if cfg.CartMaxItems <= 0 {
		return nil, fmt.Errorf("CART_MAX_ITEMS must be positive, got %d", cfg.CartMaxItems)
	}
	if cfg.CartMaxQtyPerLine <= 0 {
		return nil, fmt.Errorf("CART_MAX_QTY_PER_LINE must be positive, got %d", cfg.CartMaxQtyPerLine)
	}
	if cfg.CleanupAgeDays <= 0 {
		return nil, fmt.Errorf("CLEANUP_AGE_DAYS must be positive, got %d", cfg.CleanupAgeDays)
	}
	if cfg.CleanupBatchSize <= 0 {
		return nil, fmt.Errorf("CLEANUP_BATCH_SIZE must be positive, got %d", cfg.CleanupBatchSize)
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

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
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
