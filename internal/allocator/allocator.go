// Package allocator implements the Meta-Allocator (spec §4.5): a periodic
// loop that reads the strategy registry and per-strategy PnL history from
// the bus, computes Sharpe-proxy weights, and publishes the resulting
// allocation snapshot.
package allocator

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"time"

	msgbus "github.com/shinertx/memev1/internal/bus"
	"github.com/shinertx/memev1/internal/domain"
)

const (
	// LoopPeriod is the steady-state interval between allocation cycles.
	LoopPeriod = 60 * time.Second
	// EmptyRegistryBackoff is how long to wait when the registry holds no
	// valid specs.
	EmptyRegistryBackoff = 30 * time.Second
	// ConnErrorBackoff is how long to wait after a bus error before retrying.
	ConnErrorBackoff = 10 * time.Second
	// minWeightFactor floors the Sharpe proxy so a new or underwater
	// strategy still receives a small allocation rather than zero.
	minWeightFactor = 0.1
)

// Bus is the subset of domain.Bus the allocator needs.
type Bus interface {
	StrategyRegistry(ctx context.Context) ([]domain.StrategySpec, error)
	PnLHistory(ctx context.Context, strategyID string) ([]float64, error)
	SetActiveAllocations(ctx context.Context, allocations []domain.StrategyAllocation) error
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PublishFunc is a hook for swapping how allocations are published, used in
// tests to avoid a live bus.
type PublishFunc func(ctx context.Context, b Bus, allocations []domain.StrategyAllocation) error

// Allocator runs the periodic allocation loop.
type Allocator struct {
	bus    Bus
	logger *slog.Logger
}

// New creates an Allocator.
func New(b Bus, logger *slog.Logger) *Allocator {
	return &Allocator{bus: b, logger: logger.With(slog.String("component", "allocator"))}
}

// Run blocks, executing allocation cycles until ctx is done. publishFn may
// be nil to use the default bus-backed publish.
func (a *Allocator) Run(ctx context.Context, publishFn PublishFunc) error {
	a.logger.Info("allocator loop starting")
	for {
		wait, err := a.cycle(ctx, publishFn)
		if err != nil {
			a.logger.Warn("allocation cycle failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// cycle runs one allocation pass and returns how long to wait before the
// next one.
func (a *Allocator) cycle(ctx context.Context, publishFn PublishFunc) (time.Duration, error) {
	specs, err := a.bus.StrategyRegistry(ctx)
	if err != nil {
		a.logger.Warn("failed to read strategy registry, backing off", slog.String("error", err.Error()))
		return ConnErrorBackoff, nil
	}
	if len(specs) == 0 {
		a.logger.Warn("no valid strategy specs found in registry, waiting")
		return EmptyRegistryBackoff, nil
	}

	metrics := make(map[string]sharpeProxy, len(specs))
	for _, spec := range specs {
		history, err := a.bus.PnLHistory(ctx, spec.ID)
		if err != nil {
			a.logger.Warn("failed to read pnl history", slog.String("strategy_id", spec.ID), slog.String("error", err.Error()))
			metrics[spec.ID] = sharpeProxy{}
			continue
		}
		metrics[spec.ID] = computeSharpeProxy(history)
	}

	allocations := allocate(specs, metrics)

	a.logger.Info("publishing allocations", slog.Int("count", len(allocations)))
	if publishFn != nil {
		if err := publishFn(ctx, a.bus, allocations); err != nil {
			return LoopPeriod, err
		}
	} else if err := defaultPublish(ctx, a.bus, allocations); err != nil {
		return LoopPeriod, err
	}
	return LoopPeriod, nil
}

func defaultPublish(ctx context.Context, b Bus, allocations []domain.StrategyAllocation) error {
	if err := b.SetActiveAllocations(ctx, allocations); err != nil {
		return err
	}
	payload, err := marshalAllocations(allocations)
	if err != nil {
		return err
	}
	return b.Publish(ctx, msgbus.TopicAllocations, payload)
}

func marshalAllocations(allocations []domain.StrategyAllocation) ([]byte, error) {
	return json.Marshal(allocations)
}

type sharpeProxy struct {
	mean   float64
	sharpe float64
}

// computeSharpeProxy mirrors the original's simplified Sharpe ratio: mean
// PnL over the history's standard deviation, treating mean PnL as excess
// return and stddev as risk. Needs at least two samples; a shorter or
// empty history yields a zero proxy rather than a divide-by-zero NaN.
func computeSharpeProxy(pnl []float64) sharpeProxy {
	if len(pnl) < 2 {
		return sharpeProxy{}
	}
	mean := meanOf(pnl)
	std := stdDevOf(pnl, mean)
	sharpe := 0.0
	if std > 0 {
		sharpe = mean / std
	}
	return sharpeProxy{mean: mean, sharpe: sharpe}
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDevOf(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// allocate sorts strategies by Sharpe descending (mean PnL as tiebreaker),
// floors each weight factor, normalises to sum to 1, and returns the
// allocation snapshot in sorted order — matching the original's publish
// order exactly.
func allocate(specs []domain.StrategySpec, metrics map[string]sharpeProxy) []domain.StrategyAllocation {
	sorted := make([]domain.StrategySpec, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi, mj := metrics[sorted[i].ID], metrics[sorted[j].ID]
		if mi.sharpe != mj.sharpe {
			return mi.sharpe > mj.sharpe
		}
		return mi.mean > mj.mean
	})

	totalWeightFactor := 0.0
	for _, spec := range sorted {
		totalWeightFactor += math.Max(metrics[spec.ID].sharpe, minWeightFactor)
	}

	allocations := make([]domain.StrategyAllocation, 0, len(sorted))
	for _, spec := range sorted {
		m := metrics[spec.ID]
		var weight float64
		if totalWeightFactor > 0 {
			weight = math.Max(m.sharpe, minWeightFactor) / totalWeightFactor
		} else {
			weight = 1.0 / float64(len(sorted))
		}
		allocations = append(allocations, domain.StrategyAllocation{ID: spec.ID, Weight: weight, SharpeRatio: m.sharpe})
	}
	return allocations
}
