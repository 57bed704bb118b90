package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsPassValidation(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRequiresSignerWhenLive(t *testing.T) {
	cfg := Defaults()
	cfg.Execution.PaperTradingMode = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signer:")
}

func TestValidateRequiresKeyPasswordWithEncryptedKeyPath(t *testing.T) {
	cfg := Defaults()
	cfg.Execution.PaperTradingMode = false
	cfg.Signer.EncryptedKeyPath = "/tmp/key.enc"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidateRejectsStopLossOutOfRange(t *testing.T) {
	cfg := Defaults()
	cfg.Supervisor.PortfolioStopLossPercent = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio_stop_loss_percent")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORCH_DATABASE_PATH", "/data/custom.db")
	t.Setenv("ORCH_PAPER_TRADING_MODE", "false")
	t.Setenv("ORCH_GLOBAL_MAX_POSITION_USD", "250.5")
	t.Setenv("ORCH_JITO_TIP_LAMPORTS", "20000")
	t.Setenv("ORCH_PORTFOLIO_STOP_LOSS_PERCENT", "20")
	t.Setenv("ORCH_NOTIFY_EVENTS", "pause, resume , ")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "/data/custom.db", cfg.Ledger.DatabasePath)
	assert.False(t, cfg.Execution.PaperTradingMode)
	assert.Equal(t, 250.5, cfg.Execution.GlobalMaxPositionUSD)
	assert.Equal(t, int64(20000), cfg.Execution.JitoTipLamports)
	assert.Equal(t, 20.0, cfg.Supervisor.PortfolioStopLossPercent)
	assert.Equal(t, []string{"pause", "resume"}, cfg.Notify.Events)
}

func TestApplyEnvOverridesIgnoresUnsetVars(t *testing.T) {
	os.Unsetenv("ORCH_DATABASE_PATH")
	cfg := Defaults()
	want := cfg.Ledger.DatabasePath
	applyEnvOverrides(&cfg)
	assert.Equal(t, want, cfg.Ledger.DatabasePath)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Signer.RawPrivateKey = "supersecret"
	cfg.Postgres.Password = "pgpass"
	cfg.Archive.SecretKey = "s3secret"

	redacted := RedactedConfig(&cfg)

	assert.Equal(t, "***", redacted.Signer.RawPrivateKey)
	assert.Equal(t, "***", redacted.Postgres.Password)
	assert.Equal(t, "***", redacted.Archive.SecretKey)
	// Original must be untouched.
	assert.Equal(t, "supersecret", cfg.Signer.RawPrivateKey)
}
