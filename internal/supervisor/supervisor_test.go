package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	pnl float64
}

func (f *fakeLedger) TotalRealisedPnL(context.Context) (float64, error) { return f.pnl, nil }

type fakeBus struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	f.published = append(f.published, string(payload))
	f.mu.Unlock()
	return nil
}

func newTestSupervisor(ledger *fakeLedger, bus *fakeBus, stopLossPct float64) *Supervisor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(ledger, bus, stopLossPct, logger)
}

func TestPausesWhenDrawdownExceedsThreshold(t *testing.T) {
	ledger := &fakeLedger{pnl: 100}
	bus := &fakeBus{}
	s := newTestSupervisor(ledger, bus, 15.0)

	s.checkOnce(context.Background())
	assert.False(t, s.Paused())

	ledger.pnl = 80 // drawdown = (100-80)/100*100 = 20% > 15%
	s.checkOnce(context.Background())
	require.True(t, s.Paused())
	assert.Equal(t, []string{"PAUSE"}, bus.published)
}

func TestResumesOnlyAfterDroppingBelowResumeFactor(t *testing.T) {
	ledger := &fakeLedger{pnl: 100}
	bus := &fakeBus{}
	s := newTestSupervisor(ledger, bus, 15.0)

	s.checkOnce(context.Background())
	ledger.pnl = 80
	s.checkOnce(context.Background())
	require.True(t, s.Paused())

	ledger.pnl = 88 // drawdown = 12%, below stop-loss but equal to 15*0.8=12, not below it: stays paused
	s.checkOnce(context.Background())
	assert.True(t, s.Paused())

	ledger.pnl = 90 // drawdown = 10% < 12%: resumes
	s.checkOnce(context.Background())
	assert.False(t, s.Paused())
	assert.Equal(t, []string{"PAUSE", "RESUME"}, bus.published)
}

func TestHighWaterMarkNeverDecreases(t *testing.T) {
	ledger := &fakeLedger{pnl: 100}
	bus := &fakeBus{}
	s := newTestSupervisor(ledger, bus, 50.0)

	s.checkOnce(context.Background())
	ledger.pnl = 150
	s.checkOnce(context.Background())
	assert.Equal(t, 150.0, s.highWaterMark)

	ledger.pnl = 140
	s.checkOnce(context.Background())
	assert.Equal(t, 150.0, s.highWaterMark, "high water mark must not decrease when pnl dips")
}
