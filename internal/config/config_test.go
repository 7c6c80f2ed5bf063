package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/cart?sslmode=disable",
		"REDIS_URL":    "redis://localhost:6379/0",
		// clear anything the host environment might set
		"CURRENCY":              "",
		"CART_MAX_ITEMS":        "",
		"CART_MAX_QTY_PER_LINE": "",
		"CLEANUP_AGE_DAYS":      "",
		"CLEANUP_BATCH_SIZE":    "",
		"CLEANUP_INTERVAL":      "",
		"PRODUCT_CACHE_TTL":     "",
		"PROMO_PERCENT":         "",
		"AUDIT_ENABLED":         "",
		"PORT":                  "",
		"APP_ENV":               "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, 100, cfg.CartMaxItems)
	require.Equal(t, 99, cfg.CartMaxQtyPerLine)
	require.Equal(t, 30, cfg.CleanupAgeDays)
	require.Equal(t, 500, cfg.CleanupBatchSize)
	require.Equal(t, time.Hour, cfg.CleanupInterval)
	require.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	require.True(t, cfg.AuditEnabled)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresRedisURL(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoadRejectsUnknownCurrency(t *testing.T) {
	env := baseEnv()
	env["CURRENCY"] = "NOPE"
	_, err := LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CURRENCY")
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["CURRENCY"] = "EUR"
	env["CART_MAX_ITEMS"] = "50"
	env["CART_MAX_QTY_PER_LINE"] = "10"
	env["CLEANUP_AGE_DAYS"] = "7"
	env["CLEANUP_INTERVAL"] = "30m"
	env["AUDIT_ENABLED"] = "false"
	env["PORT"] = "9090"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "EUR", cfg.Currency)
	require.Equal(t, 50, cfg.CartMaxItems)
	require.Equal(t, 10, cfg.CartMaxQtyPerLine)
	require.Equal(t, 7, cfg.CleanupAgeDays)
	require.Equal(t, 30*time.Minute, cfg.CleanupInterval)
	require.False(t, cfg.AuditEnabled)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRejectsNonPositiveBounds(t *testing.T) {
	env := baseEnv()
	env["CART_MAX_ITEMS"] = "-1"
	_, err := LoadForTests(env)
	require.Error(t, err)
}
