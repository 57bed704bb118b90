// Command seedreg populates or removes a single entry in the
// strategy_registry Redis set (spec §6). The set has no writer inside the
// orchestrator or allocator processes — both only read it — so this is the
// external tool operators use to register a strategy before it can be
// allocated capital.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/shinertx/memev1/internal/bus"
	"github.com/shinertx/memev1/internal/config"
	"github.com/shinertx/memev1/internal/domain"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	id := flag.String("id", "", "strategy id (required)")
	family := flag.String("family", "", "strategy family name, e.g. liquidity_migration (required unless -remove)")
	paramsJSON := flag.String("params", "{}", "strategy params as a JSON object")
	remove := flag.Bool("remove", false, "remove the strategy instead of upserting it")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *id == "" {
		logger.Error("-id is required")
		os.Exit(1)
	}
	if !*remove && *family == "" {
		logger.Error("-family is required unless -remove is set")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("path", *configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := connectBus(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to bus", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	rdb := client.Underlying()

	if *remove {
		spec, err := findMember(ctx, rdb, *id)
		if err != nil {
			logger.Error("lookup failed", slog.String("id", *id), slog.String("error", err.Error()))
			os.Exit(1)
		}
		if spec == "" {
			logger.Info("no such strategy in registry", slog.String("id", *id))
			return
		}
		if err := rdb.SRem(ctx, bus.SetStrategyRegistry, spec).Err(); err != nil {
			logger.Error("srem failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("removed strategy from registry", slog.String("id", *id))
		return
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
		logger.Error("invalid -params JSON", slog.String("error", err.Error()))
		os.Exit(1)
	}

	spec := domain.StrategySpec{ID: *id, Family: *family, Params: params}
	payload, err := json.Marshal(spec)
	if err != nil {
		logger.Error("marshal spec failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if old, err := findMember(ctx, rdb, *id); err == nil && old != "" {
		if err := rdb.SRem(ctx, bus.SetStrategyRegistry, old).Err(); err != nil {
			logger.Error("srem (replace) failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if err := rdb.SAdd(ctx, bus.SetStrategyRegistry, payload).Err(); err != nil {
		logger.Error("sadd failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("registered strategy", slog.String("id", *id), slog.String("family", *family))
}

// findMember returns the raw set member for the given strategy id, or ""
// if absent. The registry is a set of whole JSON blobs, not a hash keyed by
// id, so replacing or removing an entry requires scanning for its current
// serialised form first.
func findMember(ctx context.Context, rdb *redis.Client, id string) (string, error) {
	members, err := rdb.SMembers(ctx, bus.SetStrategyRegistry).Result()
	if err != nil {
		return "", fmt.Errorf("smembers %s: %w", bus.SetStrategyRegistry, err)
	}
	for _, m := range members {
		var spec domain.StrategySpec
		if err := json.Unmarshal([]byte(m), &spec); err != nil {
			continue
		}
		if spec.ID == id {
			return m, nil
		}
	}
	return "", nil
}

// connectBus parses the configured Redis URL the same way the orchestrator
// and allocator processes do, so seedreg always talks to the same instance
// they do.
func connectBus(ctx context.Context, cfg *config.Config) (*bus.Client, error) {
	opts, err := redis.ParseURL(cfg.Bus.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus.redis_url: %w", err)
	}
	return bus.New(ctx, bus.ClientConfig{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   cfg.Bus.PoolSize,
		MaxRetries: cfg.Bus.MaxRetries,
		TLSEnabled: cfg.Bus.TLSEnabled,
	})
}
