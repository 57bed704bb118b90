package router

import (
	"log/slog"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinertx/memev1/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchDeliversToAllSubscribers(t *testing.T) {
	r := New(testLogger())
	chA, _ := r.Subscribe("A", []domain.EventKind{domain.EventPrice})
	chB, _ := r.Subscribe("B", []domain.EventKind{domain.EventPrice})

	evt := domain.MarketEvent{Kind: domain.EventPrice, Price: &domain.PriceTick{Token: "SOL", PriceUSD: 100}}
	r.Dispatch(evt)

	require.Len(t, chA, 1)
	require.Len(t, chB, 1)
	assert.Equal(t, evt, <-chA)
	assert.Equal(t, evt, <-chB)
}

func TestDispatchDropsOnFullQueueWithoutBlocking(t *testing.T) {
	r := New(testLogger())
	slow, _ := r.Subscribe("slow", []domain.EventKind{domain.EventPrice})
	fast, _ := r.Subscribe("fast", []domain.EventKind{domain.EventPrice})

	// Fill the slow subscriber's queue to capacity without draining it.
	for i := 0; i < QueueCapacity+10; i++ {
		r.Dispatch(domain.MarketEvent{Kind: domain.EventPrice, Price: &domain.PriceTick{Token: "SOL"}})
	}

	assert.Len(t, slow, QueueCapacity, "slow subscriber's queue caps at capacity, excess dropped")
	assert.Len(t, fast, QueueCapacity, "a slow peer must not reduce delivery to other subscribers")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := New(testLogger())
	ch, unsubscribe := r.Subscribe("A", []domain.EventKind{domain.EventPrice})
	unsubscribe()

	// Must not panic sending to a kind whose only subscriber closed.
	r.Dispatch(domain.MarketEvent{Kind: domain.EventPrice, Price: &domain.PriceTick{Token: "SOL"}})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestSweepDeadRemovesClosedSubscribers(t *testing.T) {
	r := New(testLogger())
	_, unsubscribe := r.Subscribe("A", []domain.EventKind{domain.EventPrice})
	unsubscribe()
	r.SweepDead()

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.subs[domain.EventPrice])
}
