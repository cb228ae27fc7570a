package dlob

import (
	"context"

	"github.com/driftlabs/dlob-go/ffi"
	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/orderlist"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// ReclassifyTakingLimit moves every TakingLimit node whose initial auction
// has completed as of slot into RestingLimit, on both sides of m. This is
// the slot-tick-driven half of spec.md §4.5: Classify is pure and would
// already report RestingLimit for such an order if called fresh, but a
// resident node's bucket placement only changes when something re-walks
// it — this is that walk.
func ReclassifyTakingLimit(marketID string, m *Market, slot uint64, collector *metrics.Collector) {
	moveCompletedAuctions(marketID, m, m.TakingLimitBids, slot, collector)
	moveCompletedAuctions(marketID, m, m.TakingLimitAsks, slot, collector)
}

func moveCompletedAuctions(marketID string, m *Market, bucket *orderlist.List, slot uint64, collector *metrics.Collector) {
	var toMove []*orderlist.Node
	bucket.Walk(func(n *orderlist.Node) bool {
		_, kind := types.Classify(n.Order, slot)
		if kind == types.NodeKindRestingLimit {
			toMove = append(toMove, n)
		}
		return true
	})

	for _, n := range toMove {
		m.Upsert(n.Id, n.Order, slot)
		if collector != nil {
			collector.RecordReclassify(marketID, types.NodeKindTakingLimit.String(), types.NodeKindRestingLimit.String())
		}
	}
}

// ReclassifyTriggers scans both trigger buckets of m and, for every order
// for which triggered reports true, synthesizes Market-order auction
// parameters via auctionMath and re-inserts the order under the bucket
// Classify gives the triggered order: Market for a TriggerMarket order, a
// limit bucket for a TriggerLimit order.
// triggered is supplied by the caller rather than computed here because
// firing a trigger requires comparing the live oracle price against
// TriggerPrice, data this package does not itself hold.
func ReclassifyTriggers(
	ctx context.Context,
	marketID string,
	m *Market,
	perpMarket ffi.PerpMarket,
	oracle ffi.OraclePriceData,
	auctionMath ffi.AuctionMath,
	triggered func(o *types.Order) bool,
	slot uint64,
	collector *metrics.Collector,
) error {
	for _, bucket := range []*orderlist.List{m.TriggerAbove, m.TriggerBelow} {
		var fired []*orderlist.Node
		bucket.Walk(func(n *orderlist.Node) bool {
			if triggered(n.Order) {
				fired = append(fired, n)
			}
			return true
		})

		for _, n := range fired {
			start, end, duration, err := auctionMath.SynthesizeTriggerAuction(ctx, perpMarket, oracle, n.Order.TriggerPrice)
			if err != nil {
				if collector != nil {
					collector.RecordError(ErrFfi.String())
				}
				return newError(ErrFfi, err)
			}

			updated := *n.Order
			updated.AuctionStartPrice = start
			updated.AuctionEndPrice = end
			updated.AuctionDuration = duration
			updated.Slot = slot
			if updated.TriggerCondition == types.TriggerConditionAbove {
				updated.TriggerCondition = types.TriggerConditionTriggeredAbove
			} else {
				updated.TriggerCondition = types.TriggerConditionTriggeredBelow
			}

			m.Upsert(n.Id, &updated, slot)
			if collector != nil {
				_, kind := types.Classify(&updated, slot)
				collector.RecordReclassify(marketID, types.NodeKindTrigger.String(), kind.String())
			}
		}
	}
	return nil
}
