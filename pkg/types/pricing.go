package types

// StandardizePrice rounds a raw price to the nearest tick in the direction
// that is worse for the order's side: Long (bid) rounds down, Short (ask)
// rounds up. It never produces zero unless the input itself was zero.
//
// tickSize must be > 0; callers are expected to reject tickSize == 0 before
// calling this (spec.md §8 boundary behavior — "tick_size = 0 is rejected at
// query time").
func StandardizePrice(price, tickSize uint64, dir Direction) uint64 {
	if price == 0 || tickSize == 0 {
		return price
	}
	rem := price % tickSize
	if rem == 0 {
		return price
	}
	if dir == DirectionLong {
		if price < tickSize {
			return tickSize
		}
		return price - rem
	}
	return price + (tickSize - rem)
}

// PriceAt resolves the matching price of an order of the given kind at the
// given slot, per spec.md §4.4. ok is false for Trigger orders, which are
// never matchable without first being synthesized into a Market order (see
// dlob.ReclassifyTriggers in dlob/reclassify.go for that step).
func PriceAt(kind NodeKind, o *Order, dir Direction, slot uint64, oraclePrice uint64, tickSize uint64) (price uint64, ok bool) {
	switch kind {
	case NodeKindRestingLimit:
		return o.Price, true

	case NodeKindFloatingLimit:
		raw := addOffset(oraclePrice, o.OraclePriceOffset)
		if raw < tickSize {
			raw = tickSize
		}
		return StandardizePrice(raw, tickSize, dir), true

	case NodeKindTakingLimit, NodeKindMarket:
		if o.OrderType == OrderTypeOracle {
			return oracleAuctionPrice(o, dir, slot, oraclePrice, tickSize)
		}
		return fixedAuctionPrice(o, dir, slot, tickSize)

	case NodeKindTrigger:
		return 0, false

	default:
		return 0, false
	}
}

// fixedAuctionPrice implements the linear interpolation between
// auction_start_price and auction_end_price described in spec.md §4.4 for
// TakingLimit/Market (fixed-price auction) orders.
func fixedAuctionPrice(o *Order, dir Direction, slot uint64, tickSize uint64) (uint64, bool) {
	if o.AuctionDuration == 0 {
		return StandardizePrice(clampNonNegative(o.AuctionEndPrice), tickSize, dir), true
	}

	elapsed := slot - o.Slot
	if elapsed > uint64(o.AuctionDuration) {
		elapsed = uint64(o.AuctionDuration)
	}

	start, end := o.AuctionStartPrice, o.AuctionEndPrice
	var raw int64
	if dir == DirectionLong {
		delta := (end - start) * int64(elapsed) / int64(o.AuctionDuration)
		raw = start + delta
	} else {
		delta := (start - end) * int64(elapsed) / int64(o.AuctionDuration)
		raw = start - delta
	}

	result := clampNonNegative(raw)
	if result < tickSize {
		result = tickSize
	}
	return StandardizePrice(result, tickSize, dir), true
}

// oracleAuctionPrice implements the same linear interpolation but over
// auction_*_price interpreted as *offsets* from the oracle price, for Oracle
// (auction oracle-offset) orders.
func oracleAuctionPrice(o *Order, dir Direction, slot uint64, oraclePrice uint64, tickSize uint64) (uint64, bool) {
	if o.AuctionDuration == 0 {
		return StandardizePrice(addOffset(oraclePrice, int32(clampOffset(o.AuctionEndPrice))), tickSize, dir), true
	}

	elapsed := slot - o.Slot
	if elapsed > uint64(o.AuctionDuration) {
		elapsed = uint64(o.AuctionDuration)
	}

	startOff, endOff := o.AuctionStartPrice, o.AuctionEndPrice
	var offset int64
	if dir == DirectionLong {
		delta := (endOff - startOff) * int64(elapsed) / int64(o.AuctionDuration)
		offset = startOff + delta
	} else {
		delta := (startOff - endOff) * int64(elapsed) / int64(o.AuctionDuration)
		offset = startOff - delta
	}

	raw := addOffset(oraclePrice, int32(clampOffset(offset)))
	if raw < tickSize {
		raw = tickSize
	}
	return StandardizePrice(raw, tickSize, dir), true
}

func addOffset(price uint64, offset int32) uint64 {
	if offset >= 0 {
		return price + uint64(offset)
	}
	neg := uint64(-int64(offset))
	if neg > price {
		return 0
	}
	return price - neg
}

func clampNonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func clampOffset(v int64) int64 {
	const maxI32 = int64(1<<31 - 1)
	const minI32 = -maxI32 - 1
	if v > maxI32 {
		return maxI32
	}
	if v < minI32 {
		return minI32
	}
	return v
}
