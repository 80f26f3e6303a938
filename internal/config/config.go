package config

import (
	"time"

	"github.com/spf13/viper"
)

// LedgerConfig carries the tunables of the points engine.
type LedgerConfig struct {
	IdempotencyTTL           time.Duration
	BalanceCacheTTL          time.Duration
	StatementDefaultPageSize int
	StatementMaxPageSize     int
	CommandTimeout           time.Duration
}

// envBindings maps viper keys to the environment variables that override them.
var envBindings = map[string]string{
	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.name":     "DATABASE_NAME",
	"database.ssl_mode": "DATABASE_SSL_MODE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key": "JWT_SECRET_KEY",

	"log.level":       "LOG_LEVEL",
	"log.development": "LOG_DEVELOPMENT",

	"server.port": "PORT",

	"ledger.idempotency_ttl":             "LEDGER_IDEMPOTENCY_TTL",
	"ledger.balance_cache_ttl":           "LEDGER_BALANCE_CACHE_TTL",
	"ledger.statement_default_page_size": "LEDGER_STATEMENT_DEFAULT_PAGE_SIZE",
	"ledger.statement_max_page_size":     "LEDGER_STATEMENT_MAX_PAGE_SIZE",
	"ledger.command_timeout":             "LEDGER_COMMAND_TIMEOUT",

	"outbox.batch_size": "OUTBOX_BATCH_SIZE",
	"outbox.channel":    "OUTBOX_CHANNEL",
}

// Init points viper at the .env file and binds the environment overrides.
// A missing .env file is not an error; the returned error is informational.
func Init(path string) error {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("outbox.batch_size", 100)

	return viper.ReadInConfig()
}

// LoadLedgerConfig reads the ledger section with its defaults applied.
func LoadLedgerConfig() *LedgerConfig {
	viper.SetDefault("ledger.idempotency_ttl", 24*time.Hour)
	viper.SetDefault("ledger.balance_cache_ttl", 30*time.Second)
	viper.SetDefault("ledger.statement_default_page_size", 50)
	viper.SetDefault("ledger.statement_max_page_size", 200)
	viper.SetDefault("ledger.command_timeout", 10*time.Second)

	cfg := &LedgerConfig{
		IdempotencyTTL:           viper.GetDuration("ledger.idempotency_ttl"),
		BalanceCacheTTL:          viper.GetDuration("ledger.balance_cache_ttl"),
		StatementDefaultPageSize: viper.GetInt("ledger.statement_default_page_size"),
		StatementMaxPageSize:     viper.GetInt("ledger.statement_max_page_size"),
		CommandTimeout:           viper.GetDuration("ledger.command_timeout"),
	}

	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.BalanceCacheTTL <= 0 {
		cfg.BalanceCacheTTL = 30 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	if cfg.StatementDefaultPageSize <= 0 {
		cfg.StatementDefaultPageSize = 50
	}
	if cfg.StatementMaxPageSize < cfg.StatementDefaultPageSize {
		cfg.StatementMaxPageSize = cfg.StatementDefaultPageSize
	}
	return cfg
}
