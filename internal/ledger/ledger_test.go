package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinertx/memev1/internal/domain"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLogAttemptInsertsPending(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	id, err := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 100, Confidence: 0.8}, "A", 1.23)
	require.NoError(t, err)
	assert.NotZero(t, id)

	rows, err := l.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.StatusPending, rows[0].Status)
	assert.Empty(t, rows[0].Signature)
	assert.Nil(t, rows[0].CloseTime)
}

func TestOpenThenCloseFollowsDAG(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	id, err := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 50}, "A", 1.0)
	require.NoError(t, err)

	require.NoError(t, l.Open(ctx, id, "sig-1"))
	require.NoError(t, l.Close(ctx, id, domain.StatusClosedProfit, 1.1, 5.0))

	rows, err := l.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.StatusClosedProfit, rows[0].Status)
	require.NotNil(t, rows[0].PnLUSD)
	assert.Equal(t, 5.0, *rows[0].PnLUSD)
}

func TestOpenIsIdempotentWithSameSignature(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	id, err := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 50}, "A", 1.0)
	require.NoError(t, err)

	require.NoError(t, l.Open(ctx, id, "sig-1"))
	require.NoError(t, l.Open(ctx, id, "sig-1"))

	err = l.Open(ctx, id, "sig-2")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	id, err := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 50}, "A", 1.0)
	require.NoError(t, err)

	// Cannot close a row that never opened.
	err = l.Close(ctx, id, domain.StatusClosedProfit, 1.0, 1.0)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, l.Open(ctx, id, "sig-1"))

	// Cannot re-open an already-open row with a different signature.
	err = l.Open(ctx, id, "sig-2")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTotalRealisedPnLSumsClosedOnly(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	id1, _ := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 10}, "A", 1.0)
	require.NoError(t, l.Open(ctx, id1, "sig-1"))
	require.NoError(t, l.Close(ctx, id1, domain.StatusClosedProfit, 1.0, 10))

	id2, _ := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 10}, "A", 1.0)
	require.NoError(t, l.Open(ctx, id2, "sig-2"))
	require.NoError(t, l.Close(ctx, id2, domain.StatusClosedLoss, 1.0, -4))

	// A still-pending row must not contribute.
	_, _ = l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 10}, "A", 1.0)

	total, err := l.TotalRealisedPnL(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.0, total)
}

func TestTotalRealisedPnLZeroWhenEmpty(t *testing.T) {
	l := newTestLedger(t)
	total, err := l.TotalRealisedPnL(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListClosedBeforeAndDeleteArchived(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	id, err := l.LogAttempt(ctx, domain.OrderDetails{Token: "SOL", SuggestedSizeUSD: 10}, "A", 1.0)
	require.NoError(t, err)
	require.NoError(t, l.Open(ctx, id, "sig-1"))
	require.NoError(t, l.Close(ctx, id, domain.StatusClosedProfit, 1.0, 10))

	rows, err := l.ListClosedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)

	rows, err = l.ListClosedBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, l.DeleteArchived(ctx, []int64{id}))
	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
