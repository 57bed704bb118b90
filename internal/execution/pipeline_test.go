package execution

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinertx/memev1/internal/domain"
)

type fakeLedger struct {
	rows   map[int64]domain.TradeRecord
	nextID int64
}

func newFakeLedger() *fakeLedger { return &fakeLedger{rows: map[int64]domain.TradeRecord{}} }

func (f *fakeLedger) LogAttempt(_ context.Context, d domain.OrderDetails, strategyID string, entryRefPrice float64) (int64, error) {
	f.nextID++
	f.rows[f.nextID] = domain.TradeRecord{
		ID: f.nextID, StrategyID: strategyID, TokenAddress: d.Token,
		AmountUSD: d.SuggestedSizeUSD, Status: domain.StatusPending,
		EntryPriceUSD: entryRefPrice, Confidence: d.Confidence,
	}
	return f.nextID, nil
}

func (f *fakeLedger) Open(_ context.Context, id int64, signature string) error {
	r := f.rows[id]
	r.Status = domain.StatusOpen
	r.Signature = signature
	f.rows[id] = r
	return nil
}

func (f *fakeLedger) Close(_ context.Context, id int64, status domain.TradeStatus, closePrice, pnl float64) error {
	r := f.rows[id]
	r.Status = status
	r.ClosePriceUSD = &closePrice
	r.PnLUSD = &pnl
	f.rows[id] = r
	return nil
}

func (f *fakeLedger) All(context.Context) ([]domain.TradeRecord, error) { return nil, nil }
func (f *fakeLedger) TotalRealisedPnL(context.Context) (float64, error) { return 0, nil }

type failingAggregator struct{}

func (failingAggregator) Quote(context.Context, float64, string) (float64, error) {
	return 0, assert.AnError
}
func (failingAggregator) SwapTx(context.Context, string, string, float64) ([]byte, error) {
	return nil, assert.AnError
}

func newTestPipeline(ledger domain.Ledger) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{PaperTradingMode: true, GlobalMaxPositionUSD: 1000}
	return New(cfg, ledger, nil, nil, nil, nil, NewSolMark(150), logger)
}

func TestExecutePaperModeOpensThenCloses(t *testing.T) {
	ledger := newFakeLedger()
	p := newTestPipeline(ledger)

	err := p.Execute(context.Background(), domain.OrderDetails{Token: "tok", SuggestedSizeUSD: 500, Side: domain.SideLong}, "strat-1")
	require.NoError(t, err)

	require.Len(t, ledger.rows, 1)
	row := ledger.rows[1]
	assert.Contains(t, []domain.TradeStatus{domain.StatusClosedProfit, domain.StatusClosedLoss}, row.Status)
	require.NotNil(t, row.PnLUSD)
}

func TestExecuteCapsSizeToGlobalMax(t *testing.T) {
	ledger := newFakeLedger()
	p := newTestPipeline(ledger)

	err := p.Execute(context.Background(), domain.OrderDetails{Token: "tok", SuggestedSizeUSD: 5000, Side: domain.SideLong}, "strat-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, ledger.rows[1].AmountUSD)
}

func TestExecuteAbortsWithNoLedgerRowOnQuoteFailure(t *testing.T) {
	ledger := newFakeLedger()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{PaperTradingMode: false, GlobalMaxPositionUSD: 1000}
	p := New(cfg, ledger, failingAggregator{}, nil, nil, nil, NewSolMark(150), logger)

	err := p.Execute(context.Background(), domain.OrderDetails{Token: "tok", SuggestedSizeUSD: 500, Side: domain.SideLong}, "strat-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuoteFailed)
	assert.Empty(t, ledger.rows)
}
