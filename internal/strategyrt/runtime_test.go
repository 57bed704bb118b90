package strategyrt

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinertx/memev1/internal/domain"
)

type fakeRouter struct {
	mu          sync.Mutex
	subscribed  []string
	unsubscribed []string
	swept       int
}

func (f *fakeRouter) Subscribe(strategyID string, kinds []domain.EventKind) (<-chan domain.MarketEvent, func()) {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, strategyID)
	f.mu.Unlock()

	ch := make(chan domain.MarketEvent, 1)
	return ch, func() {
		f.mu.Lock()
		f.unsubscribed = append(f.unsubscribed, strategyID)
		f.mu.Unlock()
	}
}

func (f *fakeRouter) SweepDead() {
	f.mu.Lock()
	f.swept++
	f.mu.Unlock()
}

type fakeExecutor struct{}

func (fakeExecutor) Execute(context.Context, domain.OrderDetails, string) error { return nil }

func newTestRuntime() (*Runtime, *fakeRouter) {
	reg := NewRegistry()
	reg.Register("noop", func(id string) Strategy { return &stubStrategy{id: id} })
	fr := &fakeRouter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(reg, fr, fakeExecutor{}, nil, logger), fr
}

func TestReconcileStartsAndStops(t *testing.T) {
	rt, fr := newTestRuntime()
	ctx := context.Background()

	rt.Reconcile(ctx, []domain.StrategySpec{{ID: "A", Family: "noop"}})
	assert.ElementsMatch(t, []string{"A"}, rt.ActiveIDs())

	rt.Reconcile(ctx, []domain.StrategySpec{{ID: "B", Family: "noop"}})
	assert.ElementsMatch(t, []string{"B"}, rt.ActiveIDs())
	assert.Contains(t, fr.unsubscribed, "A")
}

func TestReconcileIsIdempotentForUnchangedSet(t *testing.T) {
	rt, fr := newTestRuntime()
	ctx := context.Background()

	specs := []domain.StrategySpec{{ID: "A", Family: "noop"}, {ID: "B", Family: "noop"}}
	rt.Reconcile(ctx, specs)
	firstSubscribeCount := len(fr.subscribed)

	rt.Reconcile(ctx, specs)
	assert.Equal(t, firstSubscribeCount, len(fr.subscribed), "re-applying the same set must not restart any strategy")
	assert.ElementsMatch(t, []string{"A", "B"}, rt.ActiveIDs())
}

func TestReconcileSkipsUnknownFamily(t *testing.T) {
	rt, _ := newTestRuntime()
	rt.Reconcile(context.Background(), []domain.StrategySpec{{ID: "A", Family: "does_not_exist"}})
	assert.Empty(t, rt.ActiveIDs())
}

func TestRunTaskStopsOnCancel(t *testing.T) {
	rt, _ := newTestRuntime()
	ctx, cancel := context.WithCancel(context.Background())
	rt.Reconcile(ctx, []domain.StrategySpec{{ID: "A", Family: "noop"}})
	cancel()
	// Give the goroutine a moment to observe cancellation; this is a smoke
	// test, not a timing guarantee.
	time.Sleep(10 * time.Millisecond)
	require.NotNil(t, rt)
}
