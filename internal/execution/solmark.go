package execution

import (
	"math"
	"sync/atomic"
)

// SolMark is the last observed SOL/USD reference price, updated from
// SolPrice events and read by the pipeline when sizing perp base amounts
// in lamports. Stored as bits behind an atomic so the router's dispatch
// goroutine and the pipeline's execution goroutine never contend on a
// mutex for a single float.
type SolMark struct {
	bits atomic.Uint64
}

// NewSolMark creates a SolMark seeded with an initial price.
func NewSolMark(initial float64) *SolMark {
	m := &SolMark{}
	m.Set(initial)
	return m
}

// Set updates the mark.
func (m *SolMark) Set(priceUSD float64) {
	m.bits.Store(math.Float64bits(priceUSD))
}

// Get returns the current mark, or 0 if never set.
func (m *SolMark) Get() float64 {
	return math.Float64frombits(m.bits.Load())
}
