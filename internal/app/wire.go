// Package app provides the top-level application lifecycle management for
// the trading orchestrator. It wires together the Ledger, Bus, Router,
// Strategy Runtime, Execution Pipeline, Portfolio Supervisor, and the
// durable mirrors/archiver, then starts the goroutines for the configured
// operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/shinertx/memev1/internal/archive/s3"
	"github.com/shinertx/memev1/internal/bus"
	"github.com/shinertx/memev1/internal/config"
	"github.com/shinertx/memev1/internal/domain"
	"github.com/shinertx/memev1/internal/execution"
	"github.com/shinertx/memev1/internal/ledger"
	"github.com/shinertx/memev1/internal/notify"
	"github.com/shinertx/memev1/internal/router"
	"github.com/shinertx/memev1/internal/signer"
	"github.com/shinertx/memev1/internal/store/postgres"
	"github.com/shinertx/memev1/internal/strategyrt"
	"github.com/shinertx/memev1/internal/supervisor"

	// Registers the simulation-proxy strategy families against
	// strategyrt.Default via their init() functions.
	_ "github.com/shinertx/memev1/internal/strategyrt/fixtures"
)

// Dependencies bundles every collaborator Wire can construct. Fields unused
// by the active mode are left nil rather than constructed speculatively.
type Dependencies struct {
	Ledger   *ledger.Ledger
	BusConn  *bus.Client
	Bus      *bus.Bus
	Router   *router.Router
	Registry *strategyrt.Registry
	Runtime  *strategyrt.Runtime

	SolMark  *execution.SolMark
	Pipeline *execution.Pipeline
	Signer   *signer.Signer

	Postgres            *postgres.Client
	AuditStore          domain.AuditStore
	StrategyConfigStore domain.StrategyConfigStore

	ArchiveClient *archives3.Client
	Archiver      domain.Archiver

	Supervisor *supervisor.Supervisor

	Notifier *notify.Notifier
}

// Wire constructs every dependency the configured mode needs and returns a
// cleanup function that tears them down in reverse order. Callers must
// invoke the cleanup func exactly once, typically via App.Close.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	busClient, busImpl, err := wireBus(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() { _ = busClient.Close() })
	deps.BusConn = busClient
	deps.Bus = busImpl

	deps.Notifier = wireNotifier(cfg)

	if cfg.Mode != "allocator" {
		led, err := ledger.Open(ctx, cfg.Ledger.DatabasePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: open ledger: %w", err)
		}
		closers = append(closers, func() { _ = led.Close() })
		deps.Ledger = led

		pg, err := wirePostgres(ctx, cfg)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { pg.Close() })
		deps.Postgres = pg
		deps.AuditStore = postgres.NewAuditStore(pg.Pool())
		deps.StrategyConfigStore = postgres.NewStrategyConfigStore(pg.Pool())

		archiveClient, archiver, err := wireArchive(ctx, cfg, deps.Ledger, deps.AuditStore)
		if err != nil {
			return nil, cleanup, err
		}
		deps.ArchiveClient = archiveClient
		deps.Archiver = archiver

		sgnr, err := wireSigner(cfg)
		if err != nil {
			return nil, cleanup, err
		}
		deps.Signer = sgnr

		logger := slog.Default()
		deps.Router = router.New(logger)
		deps.Registry = strategyrt.Default
		deps.SolMark = execution.NewSolMark(0)

		execCfg := execution.Config{
			PaperTradingMode:     cfg.Execution.PaperTradingMode,
			GlobalMaxPositionUSD: cfg.Execution.GlobalMaxPositionUSD,
			JitoTipLamports:      cfg.Execution.JitoTipLamports,
			SolPerpMarket:        cfg.Execution.SolPerpMarket,
		}
		// Aggregator, PerpVenue, and BundleRelay are out-of-scope external
		// collaborators (spec §1/§6); paper mode never calls them, and no
		// live implementation ships in this repo.
		deps.Pipeline = execution.New(execCfg, deps.Ledger, nil, nil, nil, signerAdapter(deps.Signer), deps.SolMark, logger)
		deps.Runtime = strategyrt.New(deps.Registry, deps.Router, deps.Pipeline, deps.AuditStore, logger)
		deps.Supervisor = supervisor.New(deps.Ledger, deps.Bus, cfg.Supervisor.PortfolioStopLossPercent, logger)
	}

	return deps, cleanup, nil
}

// signerAdapter lets a nil *signer.Signer flow into execution.New as a nil
// execution.Signer interface value. A bare nil pointer would otherwise
// satisfy the interface with a non-nil value, so the conversion must be
// explicit.
func signerAdapter(s *signer.Signer) execution.Signer {
	if s == nil {
		return nil
	}
	return s
}

func wireBus(ctx context.Context, cfg *config.Config) (*bus.Client, *bus.Bus, error) {
	opts, err := redis.ParseURL(cfg.Bus.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("app: parse bus.redis_url: %w", err)
	}

	client, err := bus.New(ctx, bus.ClientConfig{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   cfg.Bus.PoolSize,
		MaxRetries: cfg.Bus.MaxRetries,
		TLSEnabled: cfg.Bus.TLSEnabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: connect bus: %w", err)
	}
	return client, bus.NewBus(client), nil
}

func wirePostgres(ctx context.Context, cfg *config.Config) (*postgres.Client, error) {
	client, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := client.RunMigrations(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("app: run postgres migrations: %w", err)
		}
	}
	return client, nil
}

func wireArchive(ctx context.Context, cfg *config.Config, led *ledger.Ledger, audit domain.AuditStore) (*archives3.Client, domain.Archiver, error) {
	client, err := archives3.New(ctx, archives3.ClientConfig{
		Endpoint:       cfg.Archive.Endpoint,
		Region:         cfg.Archive.Region,
		Bucket:         cfg.Archive.Bucket,
		AccessKey:      cfg.Archive.AccessKey,
		SecretKey:      cfg.Archive.SecretKey,
		UseSSL:         cfg.Archive.UseSSL,
		ForcePathStyle: cfg.Archive.ForcePathStyle,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: connect archive store: %w", err)
	}
	writer := archives3.NewWriter(client)
	return client, archives3.NewArchiver(writer, led, audit), nil
}

func wireSigner(cfg *config.Config) (*signer.Signer, error) {
	if cfg.Execution.PaperTradingMode {
		return nil, nil
	}
	keyHex, err := signer.LoadKey(signer.KeyConfig{
		RawPrivateKey:    cfg.Signer.RawPrivateKey,
		EncryptedKeyPath: cfg.Signer.EncryptedKeyPath,
		KeyPassword:      cfg.Signer.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("app: load signer key: %w", err)
	}
	s, err := signer.New(keyHex)
	if err != nil {
		return nil, fmt.Errorf("app: construct signer: %w", err)
	}
	return s, nil
}

func wireNotifier(cfg *config.Config) *notify.Notifier {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Notify.Events, slog.Default())
}
