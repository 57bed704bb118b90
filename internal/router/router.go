// Package router implements the Event Router (spec §4.2): a bounded,
// drop-on-full fan-out from market event kinds to per-strategy queues.
package router

import (
	"log/slog"
	"sync"

	"github.com/shinertx/memev1/internal/domain"
)

// QueueCapacity is the bound on each per-strategy queue (spec §4.2).
const QueueCapacity = 100

// subscriber pairs a strategy's inbound channel with a closed flag so dead
// senders can be swept lazily without the router holding a reference that
// would keep a stopped strategy's channel alive.
type subscriber struct {
	strategyID string
	ch         chan domain.MarketEvent
	closed     *bool
}

// Router owns the EventKind -> []queue mapping. Reads dominate (dispatch is
// far more frequent than subscribe/unsubscribe), so it favors a read-write
// mutex over a channel-owned map (spec §5).
type Router struct {
	mu   sync.RWMutex
	subs map[domain.EventKind][]*subscriber

	logger *slog.Logger
}

// New creates an empty Router.
func New(logger *slog.Logger) *Router {
	return &Router{
		subs:   make(map[domain.EventKind][]*subscriber),
		logger: logger.With(slog.String("component", "router")),
	}
}

// Subscribe appends a new bounded queue for strategyID against every listed
// kind and returns the receive side. The caller (the strategy runtime) is
// responsible for calling the returned unsubscribe func when the strategy
// stops; the router never blocks that from happening.
func (r *Router) Subscribe(strategyID string, kinds []domain.EventKind) (<-chan domain.MarketEvent, func()) {
	ch := make(chan domain.MarketEvent, QueueCapacity)
	closed := new(bool)
	sub := &subscriber{strategyID: strategyID, ch: ch, closed: closed}

	r.mu.Lock()
	for _, k := range kinds {
		r.subs[k] = append(r.subs[k], sub)
	}
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if *closed {
			return
		}
		*closed = true
		close(ch)
	}
	return ch, unsubscribe
}

// Dispatch resolves the queues subscribed to event.Kind and forwards a copy
// to each. A send that would block (queue full) is dropped and logged —
// never waited on — so one slow strategy cannot stall delivery to its
// peers (spec §8 property 2, router isolation).
//
// The RLock is held for the whole fan-out, not just the lookup: Unsubscribe
// takes the write lock before flipping closed and closing ch, so holding
// RLock here serialises every send against that close and rules out both
// the closed-flag data race and a send-on-closed-channel panic.
func (r *Router) Dispatch(event domain.MarketEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs[event.Kind] {
		if *sub.closed {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			r.logger.Warn("dropping event for slow subscriber",
				slog.String("strategy_id", sub.strategyID),
				slog.String("kind", string(event.Kind)),
			)
		}
	}
}

// SweepDead removes subscribers whose channel has been closed. Called after
// a strategy stop; dispatch never needs it to run for correctness (a closed
// channel's select-send is itself guarded by the closed flag), it only
// bounds the memory held by the kind->queues map over time.
func (r *Router) SweepDead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, subs := range r.subs {
		alive := subs[:0]
		for _, s := range subs {
			if !*s.closed {
				alive = append(alive, s)
			}
		}
		r.subs[kind] = alive
	}
}
