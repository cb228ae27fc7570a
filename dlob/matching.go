package dlob

import (
	"github.com/driftlabs/dlob-go/orderlist"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// MakerFill describes one maker-side node a hypothetical taker would cross
// against, in fill priority order.
type MakerFill struct {
	Id       types.OrderId
	Price    uint64
	Amount   uint64 // remaining size on this maker node, not the amount actually filled
	NodeKind types.NodeKind
}

// CrossesAndTopMakers is a pure, read-only query: it never mutates m. It
// answers "if a taker order with the given side, limit price (0 meaning
// unrestricted / market), and size were matched against this book right
// now, would it cross, and against which makers in priority order?"
//
// Makers are read from the side opposite takerSide, walked in each
// bucket's existing priority order (Market nodes first, since they accept
// any price, then TakingLimit, RestingLimit, and FloatingLimit). A taker
// with takerLimitPrice == 0 accepts any price (a market taker); otherwise
// a maker only crosses if its resolved price is at or better than the
// taker's limit. Trigger nodes are never matchable and are excluded by
// Market.BidLists/AskLists already.
func CrossesAndTopMakers(
	m *Market,
	takerSide types.Side,
	takerLimitPrice uint64,
	takerBaseAmount uint64,
	slot uint64,
	oraclePrice uint64,
	tickSize uint64,
	maxMakers int,
) (crosses bool, makers []MakerFill) {
	var makerLists []*orderlist.List
	var makerDir types.Direction
	if takerSide == types.SideBid {
		makerLists = m.AskLists()
		makerDir = types.DirectionShort
	} else {
		makerLists = m.BidLists()
		makerDir = types.DirectionLong
	}

	remaining := takerBaseAmount
	for _, list := range makerLists {
		if maxMakers > 0 && len(makers) >= maxMakers {
			break
		}
		if remaining == 0 && takerBaseAmount != 0 {
			break
		}

		// Market and TakingLimit buckets are ordered by slot, not by price,
		// so a node there that fails the limit does not end the bucket's walk.
		priceOrdered := list != m.MarketBids && list != m.MarketAsks &&
			list != m.TakingLimitBids && list != m.TakingLimitAsks

		list.Walk(func(n *orderlist.Node) bool {
			if maxMakers > 0 && len(makers) >= maxMakers {
				return false
			}

			_, kind := types.Classify(n.Order, slot)
			price, ok := types.PriceAt(kind, n.Order, makerDir, slot, oraclePrice, tickSize)
			if !ok {
				return true // skip unmatchable nodes (shouldn't occur: trigger is excluded upstream)
			}

			if takerLimitPrice != 0 && !crossesLimit(takerSide, takerLimitPrice, price) {
				if priceOrdered {
					return false // price-ordered bucket: nothing further in it can cross either
				}
				return true
			}

			size := n.Order.RemainingBaseAssetAmount()
			if size == 0 {
				return true
			}

			crosses = true
			makers = append(makers, MakerFill{Id: n.Id, Price: price, Amount: size, NodeKind: kind})

			if takerBaseAmount != 0 {
				if size >= remaining {
					remaining = 0
				} else {
					remaining -= size
				}
			}
			return true
		})
	}

	return crosses, makers
}

// crossesLimit reports whether a maker at makerPrice satisfies a taker on
// takerSide whose limit is takerLimitPrice: a bid taker crosses any ask at
// or below its limit; an ask taker crosses any bid at or above its limit.
func crossesLimit(takerSide types.Side, takerLimitPrice, makerPrice uint64) bool {
	if takerSide == types.SideBid {
		return makerPrice <= takerLimitPrice
	}
	return makerPrice >= takerLimitPrice
}
