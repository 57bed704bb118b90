package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// Ledger is the single source of truth for trade state transitions
// (spec §4.1). Implementations must linearise mutations per id even when
// backed by a connection pool.
type Ledger interface {
	LogAttempt(ctx context.Context, details OrderDetails, strategyID string, entryRefPrice float64) (int64, error)
	Open(ctx context.Context, id int64, signature string) error
	Close(ctx context.Context, id int64, status TradeStatus, closePrice float64, pnl float64) error
	All(ctx context.Context) ([]TradeRecord, error)
	TotalRealisedPnL(ctx context.Context) (float64, error)
}

// Bus is the message bus abstraction (spec §6): pub/sub for events and
// allocations/kill-switch, plus the few Redis data structures the system
// relies on directly (the active_allocations key, the strategy_registry
// set, and per-strategy pnl_history lists).
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	SetActiveAllocations(ctx context.Context, allocations []StrategyAllocation) error
	GetActiveAllocations(ctx context.Context) ([]StrategyAllocation, error)

	StrategyRegistry(ctx context.Context) ([]StrategySpec, error)
	PnLHistory(ctx context.Context, strategyID string) ([]float64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log. The Strategy Runtime logs
// strategy starts and stops during reconcile, and the archiver logs each
// archive move; ledger transitions and supervisor pause/resume edges are not
// logged. Ambient durability, not part of the core ledger contract.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// StrategyConfigStore durably mirrors published StrategySpecs, supplementing
// the volatile Redis strategy_registry set across process restarts.
type StrategyConfigStore interface {
	Get(ctx context.Context, id string) (StrategySpec, error)
	Upsert(ctx context.Context, spec StrategySpec) error
	List(ctx context.Context) ([]StrategySpec, error)
}

// Archiver moves closed, aged-out ledger rows to cold storage.
type Archiver interface {
	ArchiveClosed(ctx context.Context, olderThan time.Time) (int, error)
}
