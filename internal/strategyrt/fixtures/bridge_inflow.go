// Package fixtures holds the three simulation-proxy strategies carried over
// from original_source/executor/src/strategies/. They exist to exercise the
// Strategy Runtime end-to-end (spec §8 scenarios S1/S5/S6), not as a
// trading-strategy feature — spec §1 explicitly puts strategy design out of
// scope.
package fixtures

import (
	"sync"

	"github.com/shinertx/memev1/internal/domain"
	"github.com/shinertx/memev1/internal/strategyrt"
)

const bridgeInflowFamily = "bridge_inflow"

func init() {
	strategyrt.Default.Register(bridgeInflowFamily, newBridgeInflow)
}

// bridgeInflowStrategy watches price ticks as a proxy for on-chain bridge
// inflow (it subscribes to Price events only, not to Bridge events) and
// goes long when a token's volume crosses a configured threshold for the
// first time. Per-token "seen" state lives only for the task's lifetime —
// a restart resets it, which is fine because the strategy is meant to be
// idempotent across restarts (spec §9).
type bridgeInflowStrategy struct {
	id string

	mu             sync.Mutex
	volumeThresh   float64
	sizeUSD        float64
	seen           map[string]struct{}
}

func newBridgeInflow(id string) strategyrt.Strategy {
	return &bridgeInflowStrategy{id: id, seen: make(map[string]struct{})}
}

func (s *bridgeInflowStrategy) ID() string { return s.id }

func (s *bridgeInflowStrategy) Subscriptions() []domain.EventKind {
	return []domain.EventKind{domain.EventPrice}
}

func (s *bridgeInflowStrategy) Init(params map[string]any) error {
	s.volumeThresh = floatParam(params, "volume_threshold_usd", 500_000)
	s.sizeUSD = floatParam(params, "order_size_usd", 100)
	return nil
}

func (s *bridgeInflowStrategy) OnEvent(event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Kind != domain.EventPrice || event.Price == nil {
		return domain.Hold(), nil
	}
	tick := event.Price

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, already := s.seen[tick.Token]; already {
		return domain.Hold(), nil
	}
	if tick.VolumeUSD < s.volumeThresh {
		return domain.Hold(), nil
	}
	s.seen[tick.Token] = struct{}{}

	return domain.Execute(domain.OrderDetails{
		Token:            tick.Token,
		SuggestedSizeUSD: s.sizeUSD,
		Confidence:       0.6,
		Side:             domain.SideLong,
	}), nil
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}
