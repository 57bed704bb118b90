// Package config defines the top-level configuration for the trading
// orchestrator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ORCH_* environment variables.
type Config struct {
	Ledger     LedgerConfig     `toml:"ledger"`
	Bus        BusConfig        `toml:"bus"`
	Execution  ExecutionConfig  `toml:"execution"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Signer     SignerConfig     `toml:"signer"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Archive    ArchiveConfig    `toml:"archive"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// LedgerConfig holds the embedded Trade Ledger's storage parameters.
type LedgerConfig struct {
	DatabasePath string `toml:"database_path"`
}

// BusConfig holds message-bus (Redis) connection parameters.
type BusConfig struct {
	RedisURL   string `toml:"redis_url"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ExecutionConfig holds Execution Pipeline parameters.
type ExecutionConfig struct {
	PaperTradingMode     bool    `toml:"paper_trading_mode"`
	GlobalMaxPositionUSD float64 `toml:"global_max_position_usd"`
	JitoTipLamports      int64   `toml:"jito_tip_lamports"`
	JitoRPCURL           string  `toml:"jito_rpc_url"`
	SolPerpMarket        string  `toml:"sol_perp_market"`
}

// SupervisorConfig holds Portfolio Supervisor parameters.
type SupervisorConfig struct {
	PortfolioStopLossPercent float64 `toml:"portfolio_stop_loss_percent"`
}

// SignerConfig holds the local remote-signer stand-in's key material.
// Either RawPrivateKey or EncryptedKeyPath+KeyPassword must resolve to a key.
type SignerConfig struct {
	RawPrivateKey    string `toml:"raw_private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PostgresConfig holds connection parameters for the Audit & Strategy
// Registry Mirror.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ArchiveConfig holds S3-compatible cold-storage parameters for the
// ledger archiver.
type ArchiveConfig struct {
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	RetentionDays  int      `toml:"retention_days"`
	Interval       duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NotifyConfig holds notification channel credentials and the event filter
// used to build the Notifier. No component currently sends notifications
// through that Notifier; it is constructed by Wire and left unused.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values for
// local development (paper trading, localhost Redis/Postgres/MinIO).
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			DatabasePath: "./data/ledger.db",
		},
		Bus: BusConfig{
			RedisURL:   "redis://localhost:6379/0",
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Execution: ExecutionConfig{
			PaperTradingMode:     true,
			GlobalMaxPositionUSD: 100.0,
			JitoTipLamports:      10_000,
			JitoRPCURL:           "https://mainnet.block-engine.jito.wtf/api/v1/bundles",
			SolPerpMarket:        "SOL-PERP",
		},
		Supervisor: SupervisorConfig{
			PortfolioStopLossPercent: 15.0,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Archive: ArchiveConfig{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "orchestrator-archive",
			UseSSL:         false,
			ForcePathStyle: true,
			RetentionDays:  90,
			Interval:       duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"pause", "resume", "reconcile", "error"},
		},
		Mode:     "orchestrator",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. Each names a
// cmd/ entrypoint topology (orchestrator: ledger+router+runtime+pipeline+
// supervisor; allocator: the standalone Meta-Allocator process).
var validModes = map[string]bool{
	"orchestrator": true,
	"allocator":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: orchestrator, allocator)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Ledger
	if c.Ledger.DatabasePath == "" {
		errs = append(errs, "ledger: database_path must not be empty")
	}

	// Bus
	if c.Bus.RedisURL == "" {
		errs = append(errs, "bus: redis_url must not be empty")
	}
	if c.Bus.PoolSize < 1 {
		errs = append(errs, "bus: pool_size must be >= 1")
	}

	// Execution
	if c.Execution.GlobalMaxPositionUSD <= 0 {
		errs = append(errs, "execution: global_max_position_usd must be > 0")
	}
	if c.Execution.SolPerpMarket == "" {
		errs = append(errs, "execution: sol_perp_market must not be empty")
	}
	if !c.Execution.PaperTradingMode && c.Execution.JitoRPCURL == "" {
		errs = append(errs, "execution: jito_rpc_url is required when paper_trading_mode is false")
	}

	// Supervisor
	if c.Supervisor.PortfolioStopLossPercent <= 0 || c.Supervisor.PortfolioStopLossPercent >= 100 {
		errs = append(errs, "supervisor: portfolio_stop_loss_percent must be in (0, 100)")
	}

	// Signer — only required for live trading; paper mode never calls it.
	if !c.Execution.PaperTradingMode {
		if c.Signer.RawPrivateKey == "" && c.Signer.EncryptedKeyPath == "" {
			errs = append(errs, "signer: either raw_private_key or encrypted_key_path must be set when paper_trading_mode is false")
		}
		if c.Signer.EncryptedKeyPath != "" && c.Signer.KeyPassword == "" {
			errs = append(errs, "signer: key_password is required when encrypted_key_path is set")
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Archive
	if c.Archive.Endpoint == "" {
		errs = append(errs, "archive: endpoint must not be empty")
	}
	if c.Archive.Bucket == "" {
		errs = append(errs, "archive: bucket must not be empty")
	}
	if c.Archive.RetentionDays < 1 {
		errs = append(errs, "archive: retention_days must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
