package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ORCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.DatabasePath, "ORCH_DATABASE_PATH")

	// ── Bus ──
	setStr(&cfg.Bus.RedisURL, "ORCH_REDIS_URL")
	setInt(&cfg.Bus.PoolSize, "ORCH_BUS_POOL_SIZE")
	setInt(&cfg.Bus.MaxRetries, "ORCH_BUS_MAX_RETRIES")
	setBool(&cfg.Bus.TLSEnabled, "ORCH_BUS_TLS_ENABLED")

	// ── Execution ──
	setBool(&cfg.Execution.PaperTradingMode, "ORCH_PAPER_TRADING_MODE")
	setFloat64(&cfg.Execution.GlobalMaxPositionUSD, "ORCH_GLOBAL_MAX_POSITION_USD")
	setInt64(&cfg.Execution.JitoTipLamports, "ORCH_JITO_TIP_LAMPORTS")
	setStr(&cfg.Execution.JitoRPCURL, "ORCH_JITO_RPC_URL")
	setStr(&cfg.Execution.SolPerpMarket, "ORCH_SOL_PERP_MARKET")

	// ── Supervisor ──
	setFloat64(&cfg.Supervisor.PortfolioStopLossPercent, "ORCH_PORTFOLIO_STOP_LOSS_PERCENT")

	// ── Signer ──
	setStr(&cfg.Signer.RawPrivateKey, "ORCH_SIGNER_RAW_PRIVATE_KEY")
	setStr(&cfg.Signer.EncryptedKeyPath, "ORCH_SIGNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Signer.KeyPassword, "ORCH_SIGNER_KEY_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ORCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ORCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ORCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ORCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ORCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ORCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ORCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ORCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ORCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ORCH_POSTGRES_RUN_MIGRATIONS")

	// ── Archive ──
	setStr(&cfg.Archive.Endpoint, "ORCH_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "ORCH_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "ORCH_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "ORCH_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "ORCH_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "ORCH_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "ORCH_ARCHIVE_FORCE_PATH_STYLE")
	setInt(&cfg.Archive.RetentionDays, "ORCH_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "ORCH_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ORCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ORCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ORCH_MODE")
	setStr(&cfg.LogLevel, "ORCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
