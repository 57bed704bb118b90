package app

import (
	"context"

	"github.com/shinertx/memev1/internal/allocator"
)

// AllocatorMode runs the standalone Meta-Allocator process (spec §4.5): a
// periodic loop reading the strategy registry and per-strategy PnL history
// off the bus and publishing a re-weighted allocation snapshot. It shares no
// state with OrchestratorMode beyond the bus itself — the two run as
// separate cmd/ processes.
func (a *App) AllocatorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting allocator mode")
	alloc := allocator.New(deps.Bus, a.logger)
	return alloc.Run(ctx, nil)
}
