// Package types defines the shared data model consumed and produced by the
// DLOB engine: identifiers, the fixed-shape on-chain Order record, market
// parameters, and the node-kind classification/sort-key rules that are the
// core of how the book is organized.
//
// This package has no dependency on any other package in this module except
// the Solana pubkey type, so it can be imported by every layer.
package types

import "github.com/gagliardetto/solana-go"

// ————————————————————————————————————————————————————————————————————————
// Identifiers
// ————————————————————————————————————————————————————————————————————————

// MarketType distinguishes perpetual futures markets from spot markets.
type MarketType uint8

const (
	MarketTypePerp MarketType = iota
	MarketTypeSpot
)

func (t MarketType) String() string {
	if t == MarketTypeSpot {
		return "spot"
	}
	return "perp"
}

// MarketId identifies a single market: its numeric index within its type.
type MarketId struct {
	Index uint16
	Kind  MarketType
}

// QuoteSpotMarket is the reserved quote-asset spot market, index 0.
var QuoteSpotMarket = MarketId{Index: 0, Kind: MarketTypeSpot}

// UserPubkey is a Solana account address identifying a user.
type UserPubkey = solana.PublicKey

// OrderId is the compound key (user, order_id) that identifies one order
// within a user's account across its lifetime.
type OrderId struct {
	User    UserPubkey
	OrderID uint32
}

// ————————————————————————————————————————————————————————————————————————
// Order
// ————————————————————————————————————————————————————————————————————————

type OrderStatus uint8

const (
	OrderStatusInit OrderStatus = iota
	OrderStatusOpen
	OrderStatusCanceled
	OrderStatusFilled
)

type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeTriggerMarket
	OrderTypeTriggerLimit
	OrderTypeOracle
)

type Direction uint8

const (
	DirectionLong Direction = iota
	DirectionShort
)

type TriggerCondition uint8

const (
	TriggerConditionAbove TriggerCondition = iota
	TriggerConditionBelow
	TriggerConditionTriggeredAbove
	TriggerConditionTriggeredBelow
)

type PostOnly uint8

const (
	PostOnlyNone PostOnly = iota
	PostOnlyMustPostOnly
	PostOnlyTryPostOnly
	PostOnlySlide
)

// Order is the fixed-shape record the DLOB consumes, mirroring the on-chain
// order slot inside a User account.
type Order struct {
	OrderID                  uint32
	MarketIndex              uint16
	MarketType               MarketType
	Status                   OrderStatus
	OrderType                OrderType
	Direction                Direction
	BaseAssetAmount          uint64
	BaseAssetAmountFilled    uint64
	Price                    uint64
	OraclePriceOffset        int32
	TriggerPrice             uint64
	TriggerCondition         TriggerCondition
	AuctionStartPrice        int64
	AuctionEndPrice          int64
	AuctionDuration          uint8
	Slot                     uint64
	MaxTs                    int64
	PostOnly                 PostOnly
	ReduceOnly               bool
	BitFlags                 uint8
}

// MarketId returns the (index, type) pair this order belongs to.
func (o *Order) MarketId() MarketId {
	return MarketId{Index: o.MarketIndex, Kind: o.MarketType}
}

// Id returns the (user, order_id) compound key for this order.
func (o *Order) Id(user UserPubkey) OrderId {
	return OrderId{User: user, OrderID: o.OrderID}
}

// RemainingBaseAssetAmount returns the unfilled quantity.
func (o *Order) RemainingBaseAssetAmount() uint64 {
	if o.BaseAssetAmountFilled >= o.BaseAssetAmount {
		return 0
	}
	return o.BaseAssetAmount - o.BaseAssetAmountFilled
}

// IsTriggerOrder reports whether this order's type is one of the two trigger
// variants, regardless of whether it has fired yet.
func (o *Order) IsTriggerOrder() bool {
	return o.OrderType == OrderTypeTriggerMarket || o.OrderType == OrderTypeTriggerLimit
}

// MaxTsExceeded reports whether this order's max_ts deadline has passed as of
// `now` (unix seconds). MaxTs == 0 means no deadline. This is the corrected,
// unambiguous replacement for the source's confusingly-named is_expired
// predicate — see DESIGN.md Open Question 1.
func (o *Order) MaxTsExceeded(now int64) bool {
	return o.MaxTs != 0 && now > o.MaxTs
}

// Validate reports a classification error for an order whose fields are
// internally inconsistent. It never panics; callers treat a non-nil error as
// "drop this order slot" per the delta engine's error policy.
func (o *Order) Validate() error {
	if o.Status != OrderStatusOpen {
		return nil // nothing to validate for non-open orders; they're dropped upstream
	}
	if o.BaseAssetAmountFilled > o.BaseAssetAmount {
		return errInconsistent("base_asset_amount_filled exceeds base_asset_amount")
	}
	if o.IsTriggerOrder() && o.TriggerPrice == 0 {
		return errInconsistent("trigger order has zero trigger_price")
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

func errInconsistent(msg string) error { return validationError(msg) }

// ————————————————————————————————————————————————————————————————————————
// Side / node kind
// ————————————————————————————————————————————————————————————————————————

// Side is which side of the book an order rests on.
type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideAsk {
		return "ask"
	}
	return "bid"
}

// NodeKind is the classification bucket an order falls into at a given slot.
// See Classify in classify.go for the pure function that derives it.
type NodeKind uint8

const (
	NodeKindRestingLimit NodeKind = iota
	NodeKindFloatingLimit
	NodeKindTakingLimit
	NodeKindMarket
	NodeKindTrigger
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindRestingLimit:
		return "resting_limit"
	case NodeKindFloatingLimit:
		return "floating_limit"
	case NodeKindTakingLimit:
		return "taking_limit"
	case NodeKindMarket:
		return "market"
	case NodeKindTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}

// MarketParams holds the per-market configuration the DLOB needs for price
// resolution and standardization.
type MarketParams struct {
	TickSize     uint64
	StepSize     uint64
	MinOrderSize uint64
}
