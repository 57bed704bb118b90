package bus

// Topic and key names fixed by spec §6. Event kind channels follow the
// pattern events:<kind>.
const (
	TopicAllocations = "allocations_channel"
	TopicKillSwitch  = "kill_switch_channel"

	TopicEventPrice    = "events:price"
	TopicEventSocial   = "events:social"
	TopicEventDepth    = "events:depth"
	TopicEventBridge   = "events:bridge"
	TopicEventFunding  = "events:funding"
	TopicEventSolPrice = "events:sol_price"

	KeyActiveAllocations = "active_allocations"
	SetStrategyRegistry  = "strategy_registry"

	// PnLHistoryKeyPrefix is the prefix of list perf:{id}:pnl_history.
	PnLHistoryKeyPrefix = "perf:"
	pnlHistorySuffix     = ":pnl_history"

	// KillSwitchPause and KillSwitchResume are the two literal payloads
	// published on TopicKillSwitch.
	KillSwitchPause  = "PAUSE"
	KillSwitchResume = "RESUME"
)

// PnLHistoryKey builds the perf:{id}:pnl_history list key for a strategy.
func PnLHistoryKey(strategyID string) string {
	return PnLHistoryKeyPrefix + strategyID + pnlHistorySuffix
}
