package dlob

import (
	"context"
	"testing"
	"time"

	"github.com/driftlabs/dlob-go/pkg/types"
)

func TestNotifierAppliesAccountUpdate(t *testing.T) {
	t.Parallel()
	d := New(nil)
	id := testMarketId()
	d.AddMarket(id, 1)

	marketOf := func(types.UserPubkey) (types.MarketId, bool) { return id, true }
	oracleOf := func(types.MarketId) uint64 { return 50_000 }
	n := NewNotifier(d, marketOf, oracleOf, nil, nil, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	order := types.Order{OrderID: 1, Status: types.OrderStatusOpen, OrderType: types.OrderTypeLimit, Direction: types.DirectionLong, Price: 100, BaseAssetAmount: 10, PostOnly: types.PostOnlyMustPostOnly}
	n.SubmitAccountUpdate(AccountUpdate{Cur: []types.Order{order}, Slot: 5})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := d.FindOrder(id, types.OrderId{OrderID: 1}); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("notifier did not apply account update within timeout")
}

func TestNotifierDropsUpdatesWhenQueueFull(t *testing.T) {
	t.Parallel()
	d := New(nil)
	id := testMarketId()
	d.AddMarket(id, 1)

	marketOf := func(types.UserPubkey) (types.MarketId, bool) { return id, true }
	oracleOf := func(types.MarketId) uint64 { return 0 }
	n := NewNotifier(d, marketOf, oracleOf, nil, nil, 1)

	// Don't start Run: the channel should simply fill and further sends
	// should be non-blocking drops rather than hangs.
	for i := 0; i < 10; i++ {
		n.SubmitAccountUpdate(AccountUpdate{Slot: uint64(i)})
	}
}
