package fixtures

import (
	"sync"

	"github.com/shinertx/memev1/internal/domain"
	"github.com/shinertx/memev1/internal/strategyrt"
)

const liquidityMigrationFamily = "liquidity_migration"

func init() {
	strategyrt.Default.Register(liquidityMigrationFamily, newLiquidityMigration)
}

// liquidityMigrationStrategy tracks a rolling last-seen price per token and
// goes long when price jumps by more than a configured percentage between
// two consecutive ticks — a proxy for detecting liquidity migrating into a
// token ahead of a real depth/bridge feed.
type liquidityMigrationStrategy struct {
	id string

	mu          sync.Mutex
	jumpPct     float64
	sizeUSD     float64
	lastPrice   map[string]float64
}

func newLiquidityMigration(id string) strategyrt.Strategy {
	return &liquidityMigrationStrategy{id: id, lastPrice: make(map[string]float64)}
}

func (s *liquidityMigrationStrategy) ID() string { return s.id }

func (s *liquidityMigrationStrategy) Subscriptions() []domain.EventKind {
	return []domain.EventKind{domain.EventPrice}
}

func (s *liquidityMigrationStrategy) Init(params map[string]any) error {
	s.jumpPct = floatParam(params, "jump_pct", 0.1)
	s.sizeUSD = floatParam(params, "order_size_usd", 100)
	return nil
}

func (s *liquidityMigrationStrategy) OnEvent(event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Kind != domain.EventPrice || event.Price == nil {
		return domain.Hold(), nil
	}
	tick := event.Price

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.lastPrice[tick.Token]
	s.lastPrice[tick.Token] = tick.PriceUSD
	if !seen || prev <= 0 {
		return domain.Hold(), nil
	}

	change := (tick.PriceUSD - prev) / prev
	if change < s.jumpPct {
		return domain.Hold(), nil
	}

	return domain.Execute(domain.OrderDetails{
		Token:            tick.Token,
		SuggestedSizeUSD: s.sizeUSD,
		Confidence:       0.5,
		Side:             domain.SideLong,
	}), nil
}
