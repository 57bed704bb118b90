// Package strategyrt implements the Strategy Runtime and Reconciler
// (spec §4.3): a registry of strategy constructors, and a Runtime that
// reconciles the active-strategies map against allocation snapshots.
package strategyrt

import "github.com/shinertx/memev1/internal/domain"

// Strategy is the capability set every strategy exposes (spec §4.3, §9).
// OnEvent must be pure of external I/O aside from logging; any side effect
// it wants belongs in the StrategyAction it returns.
type Strategy interface {
	ID() string
	Subscriptions() []domain.EventKind
	Init(params map[string]any) error
	OnEvent(event domain.MarketEvent) (domain.StrategyAction, error)
}

// Constructor builds a fresh Strategy instance for a given strategy id.
// Registered constructors are looked up by family, not by id — a family
// may back many concurrently-running ids with distinct params.
type Constructor func(id string) Strategy
