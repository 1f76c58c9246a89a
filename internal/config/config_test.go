package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "./billing.db", cfg.DatabaseURL)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 30, cfg.PaymentTermsDays)
	assert.True(t, cfg.TaxRate.IsZero())
	assert.Equal(t, 4, cfg.SweepWorkers)
	assert.Equal(t, uint(3), cfg.StoreRetryMaxTries)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BILLING_CURRENCY", "aud")
	t.Setenv("BILLING_TAX_RATE", "10")
	t.Setenv("BILLING_PAYMENT_TERMS_DAYS", "14")
	t.Setenv("STORE_RETRY_MAX_TRIES", "0")

	cfg, err := Load("file.db", "libsql")
	require.NoError(t, err)

	assert.Equal(t, "file.db", cfg.DatabaseURL)
	assert.Equal(t, "libsql", cfg.DatabaseDriver)
	assert.Equal(t, "AUD", cfg.Currency)
	assert.True(t, cfg.TaxRate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 14, cfg.PaymentTermsDays)
	assert.Equal(t, uint(1), cfg.StoreRetryMaxTries)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BILLING_DISCOUNT_RATE", "ten")

	_, err := Load("", "")
	assert.Error(t, err)
}
