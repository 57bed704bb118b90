package fixtures

import (
	"sync"

	"github.com/shinertx/memev1/internal/domain"
	"github.com/shinertx/memev1/internal/strategyrt"
)

const perpBasisArbFamily = "perp_basis_arb"

func init() {
	strategyrt.Default.Register(perpBasisArbFamily, newPerpBasisArb)
}

// perpBasisArbStrategy proxies a funding-rate basis trade using price
// deviation from a running mean of every tick seen for the token: when the
// current tick runs far enough
// above the average the basis is assumed rich and it shorts back toward
// fair value; the inverse case is not modeled since the fixture only needs
// to exercise both execution branches across the corpus of fixtures, and
// bridge_inflow/liquidity_migration already cover the long side.
type perpBasisArbStrategy struct {
	id string

	mu           sync.Mutex
	richPct      float64
	sizeUSD      float64
	avgPrice     map[string]float64
	sampleCount  map[string]int
}

func newPerpBasisArb(id string) strategyrt.Strategy {
	return &perpBasisArbStrategy{
		id:          id,
		avgPrice:    make(map[string]float64),
		sampleCount: make(map[string]int),
	}
}

func (s *perpBasisArbStrategy) ID() string { return s.id }

func (s *perpBasisArbStrategy) Subscriptions() []domain.EventKind {
	return []domain.EventKind{domain.EventPrice}
}

func (s *perpBasisArbStrategy) Init(params map[string]any) error {
	s.richPct = floatParam(params, "rich_pct", 0.08)
	s.sizeUSD = floatParam(params, "order_size_usd", 100)
	return nil
}

func (s *perpBasisArbStrategy) OnEvent(event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Kind != domain.EventPrice || event.Price == nil {
		return domain.Hold(), nil
	}
	tick := event.Price

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.sampleCount[tick.Token]
	avg := s.avgPrice[tick.Token]
	// Incremental running mean.
	n++
	avg += (tick.PriceUSD - avg) / float64(n)
	s.sampleCount[tick.Token] = n
	s.avgPrice[tick.Token] = avg

	if n < 3 || avg <= 0 {
		return domain.Hold(), nil
	}

	deviation := (tick.PriceUSD - avg) / avg
	if deviation < s.richPct {
		return domain.Hold(), nil
	}

	return domain.Execute(domain.OrderDetails{
		Token:            tick.Token,
		SuggestedSizeUSD: s.sizeUSD,
		Confidence:       0.55,
		Side:             domain.SideShort,
	}), nil
}
