package strategyrt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shinertx/memev1/internal/domain"
)

// Router is the subset of router.Router the runtime needs — kept as an
// interface so tests can substitute a fake without an import cycle.
type Router interface {
	Subscribe(strategyID string, kinds []domain.EventKind) (<-chan domain.MarketEvent, func())
	SweepDead()
}

// Executor is the subset of the execution pipeline the runtime hands
// Execute actions to.
type Executor interface {
	Execute(ctx context.Context, order domain.OrderDetails, strategyID string) error
}

// Audit is the subset of domain.AuditStore the runtime logs reconcile
// decisions to. Optional — a nil Audit simply skips logging.
type Audit interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}

type running struct {
	cancel      context.CancelFunc
	unsubscribe func()
}

// Runtime owns the active-strategies map and performs reconciliation
// against allocation snapshots (spec §4.3). Reconcile is single-threaded
// with respect to that map: no two reconciles run concurrently, enforced
// by mu.
type Runtime struct {
	mu       sync.Mutex
	active   map[string]*running
	registry *Registry
	router   Router
	executor Executor
	audit    Audit
	logger   *slog.Logger
}

// New creates a Runtime. audit may be nil.
func New(registry *Registry, router Router, executor Executor, audit Audit, logger *slog.Logger) *Runtime {
	return &Runtime{
		active:   make(map[string]*running),
		registry: registry,
		router:   router,
		executor: executor,
		audit:    audit,
		logger:   logger.With(slog.String("component", "strategy_runtime")),
	}
}

// ActiveIDs returns the currently-running strategy ids, for tests and
// dashboards.
func (rt *Runtime) ActiveIDs() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ids := make([]string, 0, len(rt.active))
	for id := range rt.active {
		ids = append(ids, id)
	}
	return ids
}

// Reconcile diffs the new allocation-derived spec set against the current
// active-strategies map: stops removed strategies, starts new ones, leaves
// unchanged ones running untouched (spec §4.3 step 3; idempotent per
// spec §8 property 3 — re-applying the same set restarts nothing).
func (rt *Runtime) Reconcile(ctx context.Context, specs []domain.StrategySpec) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	newByID := make(map[string]domain.StrategySpec, len(specs))
	for _, s := range specs {
		newByID[s.ID] = s
	}

	for id, r := range rt.active {
		if _, keep := newByID[id]; !keep {
			r.cancel()
			r.unsubscribe()
			delete(rt.active, id)
			rt.logAudit(ctx, "strategy_stopped", map[string]any{"strategy_id": id})
		}
	}
	rt.router.SweepDead()

	for id, spec := range newByID {
		if _, already := rt.active[id]; already {
			continue
		}
		rt.start(ctx, spec)
	}
}

func (rt *Runtime) start(ctx context.Context, spec domain.StrategySpec) {
	ctor, err := rt.registry.Get(spec.Family)
	if err != nil {
		rt.logger.Warn("unknown strategy family, skipping this cycle",
			slog.String("strategy_id", spec.ID), slog.String("family", spec.Family), slog.String("error", err.Error()))
		return
	}

	strategy := ctor(spec.ID)
	if err := strategy.Init(spec.Params); err != nil {
		rt.logger.Warn("strategy init failed, skipping this cycle",
			slog.String("strategy_id", spec.ID), slog.String("error", err.Error()))
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	events, unsubscribe := rt.router.Subscribe(spec.ID, strategy.Subscriptions())

	rt.active[spec.ID] = &running{cancel: cancel, unsubscribe: unsubscribe}
	rt.logAudit(ctx, "strategy_started", map[string]any{"strategy_id": spec.ID, "family": spec.Family})

	go rt.runTask(taskCtx, strategy, events)
}

func (rt *Runtime) runTask(ctx context.Context, strategy Strategy, events <-chan domain.MarketEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			action, err := strategy.OnEvent(event)
			if err != nil {
				rt.logger.Error("strategy error, continuing",
					slog.String("strategy_id", strategy.ID()), slog.String("error", err.Error()))
				continue
			}
			if action.Kind != domain.ActionExecute {
				continue
			}
			if err := rt.executor.Execute(ctx, action.Order, strategy.ID()); err != nil {
				rt.logger.Error("execution failed",
					slog.String("strategy_id", strategy.ID()), slog.String("error", err.Error()))
			}
		}
	}
}

func (rt *Runtime) logAudit(ctx context.Context, event string, detail map[string]any) {
	if rt.audit == nil {
		return
	}
	if err := rt.audit.Log(ctx, event, detail); err != nil {
		rt.logger.Warn("audit log failed", slog.String("error", err.Error()))
	}
}
