package dlob

import (
	"context"
	"testing"

	"github.com/driftlabs/dlob-go/ffi"
	"github.com/driftlabs/dlob-go/pkg/types"
)

func TestReclassifyTakingLimitMovesCompletedAuctions(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	o := &types.Order{OrderID: 1, OrderType: types.OrderTypeLimit, Direction: types.DirectionLong, Slot: 100, AuctionDuration: 10}
	id := types.OrderId{OrderID: 1}
	m.Upsert(id, o, 105) // still auctioning

	if m.TakingLimitBids.Len() != 1 {
		t.Fatalf("TakingLimitBids.Len() = %d, want 1 before completion", m.TakingLimitBids.Len())
	}

	ReclassifyTakingLimit("perp-0", m, 111, nil) // auction ended at slot 110

	if m.TakingLimitBids.Len() != 0 {
		t.Errorf("TakingLimitBids.Len() = %d, want 0 after reclassification", m.TakingLimitBids.Len())
	}
	if m.RestingLimitBids.Len() != 1 {
		t.Errorf("RestingLimitBids.Len() = %d, want 1 after reclassification", m.RestingLimitBids.Len())
	}
}

func TestReclassifyTakingLimitLeavesInProgressAuctions(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	o := &types.Order{OrderID: 1, OrderType: types.OrderTypeLimit, Direction: types.DirectionLong, Slot: 100, AuctionDuration: 50}
	id := types.OrderId{OrderID: 1}
	m.Upsert(id, o, 110)

	ReclassifyTakingLimit("perp-0", m, 120, nil)

	if m.TakingLimitBids.Len() != 1 {
		t.Errorf("TakingLimitBids.Len() = %d, want 1 (auction still running)", m.TakingLimitBids.Len())
	}
}

type fakeAuctionMath struct {
	start, end int64
	duration   uint8
}

func (f fakeAuctionMath) SynthesizeTriggerAuction(ctx context.Context, market ffi.PerpMarket, oracle ffi.OraclePriceData, triggerPrice uint64) (int64, int64, uint8, error) {
	return f.start, f.end, f.duration, nil
}

func TestReclassifyTriggersMovesFiredTriggerToMarket(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	o := &types.Order{OrderID: 5, OrderType: types.OrderTypeTriggerMarket, Direction: types.DirectionLong, TriggerCondition: types.TriggerConditionAbove, TriggerPrice: 50_000}
	id := types.OrderId{OrderID: 5}
	m.Upsert(id, o, 1)

	if m.TriggerAbove.Len() != 1 {
		t.Fatalf("TriggerAbove.Len() = %d, want 1 before firing", m.TriggerAbove.Len())
	}

	fired := func(o *types.Order) bool { return o.TriggerPrice <= 51_000 }
	math := fakeAuctionMath{start: 51_000, end: 51_500, duration: 10}

	err := ReclassifyTriggers(context.Background(), "perp-0", m, ffi.PerpMarket{}, ffi.OraclePriceData{}, math, fired, 20, nil)
	if err != nil {
		t.Fatalf("ReclassifyTriggers: %v", err)
	}

	if m.TriggerAbove.Len() != 0 {
		t.Errorf("TriggerAbove.Len() = %d, want 0 after firing", m.TriggerAbove.Len())
	}
	node, ok := m.MarketBids.Get(id)
	if !ok {
		t.Fatal("fired trigger not found in MarketBids")
	}
	if node.Order.TriggerCondition != types.TriggerConditionTriggeredAbove {
		t.Errorf("TriggerCondition = %v, want TriggeredAbove", node.Order.TriggerCondition)
	}
	if node.Order.AuctionStartPrice != 51_000 {
		t.Errorf("AuctionStartPrice = %d, want 51000", node.Order.AuctionStartPrice)
	}
}

func TestReclassifyTriggersLeavesUnfiredTriggers(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	o := &types.Order{OrderID: 5, OrderType: types.OrderTypeTriggerMarket, Direction: types.DirectionLong, TriggerCondition: types.TriggerConditionAbove, TriggerPrice: 90_000}
	id := types.OrderId{OrderID: 5}
	m.Upsert(id, o, 1)

	fired := func(o *types.Order) bool { return o.TriggerPrice <= 51_000 }
	math := fakeAuctionMath{start: 51_000, end: 51_500, duration: 10}

	if err := ReclassifyTriggers(context.Background(), "perp-0", m, ffi.PerpMarket{}, ffi.OraclePriceData{}, math, fired, 20, nil); err != nil {
		t.Fatalf("ReclassifyTriggers: %v", err)
	}

	if m.TriggerAbove.Len() != 1 {
		t.Errorf("TriggerAbove.Len() = %d, want 1 (not yet fired)", m.TriggerAbove.Len())
	}
}
