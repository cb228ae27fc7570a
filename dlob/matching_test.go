package dlob

import (
	"testing"

	"github.com/driftlabs/dlob-go/pkg/types"
)

func restingOrder(id uint32, dir types.Direction, price, amount uint64) *types.Order {
	return &types.Order{
		OrderID:         id,
		OrderType:       types.OrderTypeLimit,
		Direction:       dir,
		Price:           price,
		BaseAssetAmount: amount,
		PostOnly:        types.PostOnlyMustPostOnly,
	}
}

func TestCrossesAndTopMakersFindsCrossingAsk(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	m.Upsert(types.OrderId{OrderID: 1}, restingOrder(1, types.DirectionShort, 49_000, 100), 10)
	m.Upsert(types.OrderId{OrderID: 2}, restingOrder(2, types.DirectionShort, 51_000, 100), 10)

	crosses, makers := CrossesAndTopMakers(m, types.SideBid, 50_000, 100, 10, 0, 1, 10)
	if !crosses {
		t.Fatal("expected crossing bid at 50000 against ask at 49000")
	}
	if len(makers) != 1 || makers[0].Price != 49_000 {
		t.Errorf("makers = %+v, want one fill at 49000", makers)
	}
}

func TestCrossesAndTopMakersNoCrossWhenLimitTooLow(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	m.Upsert(types.OrderId{OrderID: 1}, restingOrder(1, types.DirectionShort, 51_000, 100), 10)

	crosses, makers := CrossesAndTopMakers(m, types.SideBid, 50_000, 100, 10, 0, 1, 10)
	if crosses {
		t.Errorf("expected no cross, got makers=%+v", makers)
	}
}

func TestCrossesAndTopMakersMarketOrdersAlwaysCross(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	mkt := &types.Order{OrderID: 1, OrderType: types.OrderTypeMarket, Direction: types.DirectionShort, BaseAssetAmount: 50, Slot: 5, AuctionStartPrice: 100_000, AuctionEndPrice: 90_000, AuctionDuration: 10}
	m.Upsert(types.OrderId{OrderID: 1}, mkt, 5)

	crosses, makers := CrossesAndTopMakers(m, types.SideBid, 0, 50, 6, 0, 1, 10)
	if !crosses {
		t.Fatal("market order makers should always cross")
	}
	if len(makers) != 1 {
		t.Errorf("makers = %+v, want 1", makers)
	}
}

func TestCrossesAndTopMakersRespectsMaxMakers(t *testing.T) {
	t.Parallel()
	m := NewMarket()
	for i := uint32(1); i <= 5; i++ {
		m.Upsert(types.OrderId{OrderID: i}, restingOrder(i, types.DirectionShort, uint64(40_000+i), 10), 10)
	}

	_, makers := CrossesAndTopMakers(m, types.SideBid, 50_000, 0, 10, 0, 1, 2)
	if len(makers) != 2 {
		t.Errorf("len(makers) = %d, want 2 (maxMakers)", len(makers))
	}
}
