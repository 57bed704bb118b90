package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/shinertx/memev1/internal/domain"
)

// Bus implements domain.Bus using Redis Pub/Sub for ephemeral messaging and
// plain Redis structures for the shared allocation/registry/performance
// state spec §6 names explicitly.
type Bus struct {
	rdb *redis.Client
}

// NewBus creates a Bus backed by the given Client.
func NewBus(c *Client) *Bus {
	return &Bus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("bus: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel that emits raw byte payloads. The subscription closes when ctx is
// cancelled; the returned channel is closed at that point too.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = b.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = b.rdb.Subscribe(ctx, channel)
	}

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("bus: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// SetActiveAllocations writes the allocation snapshot to the
// active_allocations key for dashboard reads, per spec §6.
func (b *Bus) SetActiveAllocations(ctx context.Context, allocations []domain.StrategyAllocation) error {
	payload, err := json.Marshal(allocations)
	if err != nil {
		return fmt.Errorf("bus: marshal allocations: %w", err)
	}
	if err := b.rdb.Set(ctx, KeyActiveAllocations, payload, 0).Err(); err != nil {
		return fmt.Errorf("bus: set %s: %w", KeyActiveAllocations, err)
	}
	return nil
}

// GetActiveAllocations reads the most recently published allocation
// snapshot. Returns an empty slice if the key has never been set.
func (b *Bus) GetActiveAllocations(ctx context.Context) ([]domain.StrategyAllocation, error) {
	payload, err := b.rdb.Get(ctx, KeyActiveAllocations).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("bus: get %s: %w", KeyActiveAllocations, err)
	}
	var allocations []domain.StrategyAllocation
	if err := json.Unmarshal(payload, &allocations); err != nil {
		return nil, fmt.Errorf("bus: unmarshal allocations: %w", err)
	}
	return allocations, nil
}

// StrategyRegistry reads every member of the strategy_registry set and
// decodes it as a StrategySpec. The set is externally populated (spec §6);
// malformed members are skipped rather than failing the whole read.
func (b *Bus) StrategyRegistry(ctx context.Context) ([]domain.StrategySpec, error) {
	members, err := b.rdb.SMembers(ctx, SetStrategyRegistry).Result()
	if err != nil {
		return nil, fmt.Errorf("bus: smembers %s: %w", SetStrategyRegistry, err)
	}

	specs := make([]domain.StrategySpec, 0, len(members))
	for _, m := range members {
		var spec domain.StrategySpec
		if err := json.Unmarshal([]byte(m), &spec); err != nil {
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// PnLHistory reads the ordered perf:{id}:pnl_history list as float64s.
func (b *Bus) PnLHistory(ctx context.Context, strategyID string) ([]float64, error) {
	raw, err := b.rdb.LRange(ctx, PnLHistoryKey(strategyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("bus: lrange %s: %w", PnLHistoryKey(strategyID), err)
	}

	history := make([]float64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		history = append(history, v)
	}
	return history, nil
}

// Compile-time interface check.
var _ domain.Bus = (*Bus)(nil)
