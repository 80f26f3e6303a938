package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadLedgerConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		cfg := LoadLedgerConfig()

		assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
		assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
		assert.Equal(t, 50, cfg.StatementDefaultPageSize)
		assert.Equal(t, 200, cfg.StatementMaxPageSize)
		assert.Equal(t, 10*time.Second, cfg.CommandTimeout)
	})

	t.Run("environment overrides", func(t *testing.T) {
		viper.Reset()
		t.Setenv("LEDGER_IDEMPOTENCY_TTL", "2h")
		t.Setenv("LEDGER_STATEMENT_DEFAULT_PAGE_SIZE", "20")
		Init("does-not-exist.env")

		cfg := LoadLedgerConfig()
		assert.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
		assert.Equal(t, 20, cfg.StatementDefaultPageSize)
	})

	t.Run("max page size never below default", func(t *testing.T) {
		viper.Reset()
		viper.Set("ledger.statement_default_page_size", 100)
		viper.Set("ledger.statement_max_page_size", 10)

		cfg := LoadLedgerConfig()
		assert.Equal(t, 100, cfg.StatementMaxPageSize)
	})

	t.Run("zero durations fall back to defaults", func(t *testing.T) {
		viper.Reset()
		viper.Set("ledger.idempotency_ttl", "0s")
		viper.Set("ledger.balance_cache_ttl", "0s")
		viper.Set("ledger.command_timeout", "-5s")

		cfg := LoadLedgerConfig()
		assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
		assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
		assert.Equal(t, 10*time.Second, cfg.CommandTimeout)
	})
}
