package domain

import "time"

// TradeStatus is the lifecycle state of a TradeRecord. Transitions are
// constrained to the DAG Pending -> {Open, Canceled}, Open -> {ClosedProfit,
// ClosedLoss}; any other transition is rejected by the ledger.
type TradeStatus string

const (
	StatusPending      TradeStatus = "PENDING"
	StatusOpen         TradeStatus = "OPEN"
	StatusClosedProfit TradeStatus = "CLOSED_PROFIT"
	StatusClosedLoss   TradeStatus = "CLOSED_LOSS"
	StatusCanceled     TradeStatus = "CANCELED"
)

// Side is the direction of an order a strategy wants executed.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// TradeRecord is the durable row owned exclusively by the Ledger.
// Pending rows carry no signature or close fields; Open rows carry a
// signature; Closed rows carry the full close set.
type TradeRecord struct {
	ID            int64
	StrategyID    string
	TokenAddress  string
	Symbol        string
	AmountUSD     float64
	Status        TradeStatus
	Signature     string
	EntryTime     time.Time
	EntryPriceUSD float64
	CloseTime     *time.Time
	ClosePriceUSD *float64
	PnLUSD        *float64
	Confidence    float64
}

// StrategySpec describes a registered strategy: its identity, its family
// (which constructor in the registry to use), and opaque parameters. It is
// immutable once published to the strategy_registry set.
type StrategySpec struct {
	ID     string         `json:"id"`
	Family string         `json:"family"`
	Params map[string]any `json:"params"`
}

// StrategyAllocation is one entry of the snapshot the Allocator publishes.
// Weight is normalised across the published set; SharpeRatio is carried for
// dashboards and publication ordering, not consumed by the Orchestrator.
type StrategyAllocation struct {
	ID          string  `json:"id"`
	Weight      float64 `json:"weight"`
	SharpeRatio float64 `json:"sharpe_ratio"`
}

// EventKind discriminates MarketEvent variants for router subscription and
// dispatch.
type EventKind string

const (
	EventPrice    EventKind = "price"
	EventSocial   EventKind = "social"
	EventDepth    EventKind = "depth"
	EventBridge   EventKind = "bridge"
	EventFunding  EventKind = "funding"
	EventSolPrice EventKind = "sol_price"
)

// PriceTick is the Price event payload.
type PriceTick struct {
	Token     string  `json:"token"`
	PriceUSD  float64 `json:"price_usd"`
	VolumeUSD float64 `json:"volume_usd"`
}

// SocialMention is the Social event payload.
type SocialMention struct {
	Token    string `json:"token"`
	Source   string `json:"source"`
	Mentions int    `json:"mentions"`
}

// DepthEvent is the Depth event payload.
type DepthEvent struct {
	Token       string  `json:"token"`
	BidDepthUSD float64 `json:"bid_depth_usd"`
	AskDepthUSD float64 `json:"ask_depth_usd"`
}

// BridgeEvent is the Bridge event payload (inbound bridge inflow for a token).
type BridgeEvent struct {
	Token       string  `json:"token"`
	InflowUSD   float64 `json:"inflow_usd"`
	SourceChain string  `json:"source_chain"`
}

// FundingEvent is the Funding event payload (perp funding rate snapshot).
type FundingEvent struct {
	Token       string  `json:"token"`
	FundingRate float64 `json:"funding_rate"`
}

// SolPriceEvent is the SolPrice event payload. It carries no token, since it
// is the single reference SOL/USD mark.
type SolPriceEvent struct {
	PriceUSD float64 `json:"price_usd"`
}

// MarketEvent is a tagged union over the six event variants. Exactly one of
// the typed fields is non-nil, matching Kind. Strategies treat events as
// cheaply cloneable values, never references into shared state.
type MarketEvent struct {
	Kind    EventKind      `json:"kind"`
	Price   *PriceTick     `json:"price,omitempty"`
	Social  *SocialMention `json:"social,omitempty"`
	Depth   *DepthEvent    `json:"depth,omitempty"`
	Bridge  *BridgeEvent   `json:"bridge,omitempty"`
	Funding *FundingEvent  `json:"funding,omitempty"`
	Sol     *SolPriceEvent `json:"sol_price,omitempty"`
}

// Token returns the token identifier carried by the event, or "" for
// SolPrice, which has none.
func (e MarketEvent) Token() string {
	switch e.Kind {
	case EventPrice:
		if e.Price != nil {
			return e.Price.Token
		}
	case EventSocial:
		if e.Social != nil {
			return e.Social.Token
		}
	case EventDepth:
		if e.Depth != nil {
			return e.Depth.Token
		}
	case EventBridge:
		if e.Bridge != nil {
			return e.Bridge.Token
		}
	case EventFunding:
		if e.Funding != nil {
			return e.Funding.Token
		}
	}
	return ""
}

// OrderDetails is emitted by a strategy and consumed once by the execution
// pipeline.
type OrderDetails struct {
	Token            string
	SuggestedSizeUSD float64
	Confidence       float64
	Side             Side
}

// StrategyActionKind discriminates StrategyAction.
type StrategyActionKind string

const (
	ActionExecute StrategyActionKind = "execute"
	ActionHold    StrategyActionKind = "hold"
)

// StrategyAction is the result of Strategy.OnEvent: either Hold, or Execute
// carrying the order to hand to the execution pipeline.
type StrategyAction struct {
	Kind  StrategyActionKind
	Order OrderDetails
}

// Hold is the zero-value no-op action.
func Hold() StrategyAction { return StrategyAction{Kind: ActionHold} }

// Execute wraps an order in an Execute action.
func Execute(o OrderDetails) StrategyAction {
	return StrategyAction{Kind: ActionExecute, Order: o}
}

// StreamMessage is a single entry read back from a bus stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}
