package types

// Classify derives an order's (side, kind) at a given slot. It is a pure
// function: calling it twice with the same (order, slot) always yields the
// same answer, regardless of what else has happened to the book.
//
// Rules, in priority order (spec.md §3 "Node kinds"):
//  1. An un-triggered trigger order (TriggerMarket/TriggerLimit with
//     condition Above or Below) is always Trigger.
//  2. Market, TriggerMarket (once triggered — see note below), or Oracle
//     orders are Market (auction-price) orders.
//  3. A limit order with a non-zero oracle offset is FloatingLimit.
//  4. A limit order whose initial auction has completed, or that is
//     post-only, is RestingLimit.
//  5. Otherwise it is still inside its initial taking auction: TakingLimit.
//
// A TriggerMarket order that has already fired (TriggerCondition is
// TriggeredAbove/TriggeredBelow rather than Above/Below) falls through rule 1
// and is classified as Market by rule 2, matching the reclassification
// described in spec.md §4.5.
func Classify(o *Order, slot uint64) (Side, NodeKind) {
	side := sideFor(o)

	if o.IsTriggerOrder() && (o.TriggerCondition == TriggerConditionAbove || o.TriggerCondition == TriggerConditionBelow) {
		return side, NodeKindTrigger
	}

	if o.OrderType == OrderTypeMarket || o.OrderType == OrderTypeTriggerMarket || o.OrderType == OrderTypeOracle {
		return side, NodeKindMarket
	}

	if o.OraclePriceOffset != 0 {
		return side, NodeKindFloatingLimit
	}

	auctionOver := uint64AddInt64(o.Slot, int64(o.AuctionDuration)) < slot
	if auctionOver || o.PostOnly != PostOnlyNone {
		return side, NodeKindRestingLimit
	}

	return side, NodeKindTakingLimit
}

// sideFor implements the side-assignment rule: an inactive trigger order
// sides on its trigger_condition (Above -> bid, Below -> ask); every other
// order sides on its direction (Long -> bid, Short -> ask).
func sideFor(o *Order) Side {
	if o.IsTriggerOrder() && (o.TriggerCondition == TriggerConditionAbove || o.TriggerCondition == TriggerConditionBelow) {
		if o.TriggerCondition == TriggerConditionAbove {
			return SideBid
		}
		return SideAsk
	}
	if o.Direction == DirectionLong {
		return SideBid
	}
	return SideAsk
}

func uint64AddInt64(slot uint64, dur int64) uint64 {
	if dur < 0 {
		if uint64(-dur) > slot {
			return 0
		}
		return slot - uint64(-dur)
	}
	return slot + uint64(dur)
}
