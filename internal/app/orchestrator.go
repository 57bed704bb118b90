package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	msgbus "github.com/shinertx/memev1/internal/bus"
	"github.com/shinertx/memev1/internal/domain"
)

// eventTopics lists the bus channels carrying MarketEvent variants, so
// OrchestratorMode can subscribe to all six with one loop body instead of six
// near-identical ones. The kind is read from each payload's own "kind" field.
var eventTopics = []string{
	msgbus.TopicEventPrice,
	msgbus.TopicEventSocial,
	msgbus.TopicEventDepth,
	msgbus.TopicEventBridge,
	msgbus.TopicEventFunding,
	msgbus.TopicEventSolPrice,
}

// OrchestratorMode runs the Strategy Orchestrator (spec §4.2/§4.3): it fans
// every events:* channel into the Router, reconciles the Strategy Runtime
// against each allocation snapshot the Allocator publishes, runs the
// Portfolio Supervisor's drawdown loop, and periodically archives aged-out
// ledger rows. One goroutine per subsystem, grouped so a single failure
// cancels the rest cleanly (spec §7 propagation policy).
func (a *App) OrchestratorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting orchestrator mode")

	g, ctx := errgroup.WithContext(ctx)

	for _, topic := range eventTopics {
		topic := topic
		g.Go(func() error {
			return a.runEventListener(ctx, deps, topic)
		})
	}

	g.Go(func() error {
		return a.runAllocationListener(ctx, deps)
	})

	g.Go(func() error {
		return deps.Supervisor.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps)
		})
	}

	return g.Wait()
}

// runEventListener subscribes to a single events:* channel and dispatches
// every decoded MarketEvent into the Router. SolPrice events also update the
// shared SolMark the execution pipeline reads. A message that fails to decode
// is logged and skipped — one malformed ingester payload never stalls the
// subscription (spec §7).
func (a *App) runEventListener(ctx context.Context, deps *Dependencies, topic string) error {
	msgs, err := deps.Bus.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "subscribed to event topic", slog.String("topic", topic))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var event domain.MarketEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				a.logger.WarnContext(ctx, "dropping malformed event payload",
					slog.String("topic", topic), slog.String("error", err.Error()))
				continue
			}
			if event.Kind == domain.EventSolPrice && event.Sol != nil && deps.SolMark != nil {
				deps.SolMark.Set(event.Sol.PriceUSD)
			}
			deps.Router.Dispatch(event)
		}
	}
}

// runAllocationListener subscribes to the allocations channel and reconciles
// the Strategy Runtime on every snapshot (spec §4.3 step 3). The Allocator's
// published payload carries id/weight/sharpe, not the family/params pair the
// Runtime needs to construct a strategy, so each cycle re-reads the full
// registry and keeps only the specs named in the snapshot.
func (a *App) runAllocationListener(ctx context.Context, deps *Dependencies) error {
	msgs, err := deps.Bus.Subscribe(ctx, msgbus.TopicAllocations)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "subscribed to allocations channel")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var allocations []domain.StrategyAllocation
			if err := json.Unmarshal(payload, &allocations); err != nil {
				a.logger.WarnContext(ctx, "dropping malformed allocation payload", slog.String("error", err.Error()))
				continue
			}
			a.reconcileAllocations(ctx, deps, allocations)
		}
	}
}

func (a *App) reconcileAllocations(ctx context.Context, deps *Dependencies, allocations []domain.StrategyAllocation) {
	wanted := make(map[string]struct{}, len(allocations))
	for _, alloc := range allocations {
		wanted[alloc.ID] = struct{}{}
	}

	specs, err := deps.Bus.StrategyRegistry(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "reconcile: failed to read strategy registry", slog.String("error", err.Error()))
		return
	}

	selected := make([]domain.StrategySpec, 0, len(allocations))
	for _, spec := range specs {
		if _, ok := wanted[spec.ID]; ok {
			selected = append(selected, spec)
		}
	}

	a.logger.InfoContext(ctx, "reconciling strategy runtime", slog.Int("allocated", len(allocations)), slog.Int("resolved", len(selected)))
	deps.Runtime.Reconcile(ctx, selected)
}

// runArchiveLoop calls ArchiveClosed once per archive.interval, moving
// CLOSED_* ledger rows older than archive.retention_days to cold storage.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.Interval.Duration
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			n, err := deps.Archiver.ArchiveClosed(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "archive cycle failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "archived closed ledger rows", slog.Int("count", n))
			}
		}
	}
}
