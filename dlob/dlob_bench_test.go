package dlob

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// These mirror original_source/benches/dlob.rs, which benchmarks
// insert/remove/best-bid throughput at scale with criterion. Expressed
// here with testing.B instead of porting the criterion harness.

func newBenchDLOB(id types.MarketId) *DLOB {
	d := New(metrics.GetCollector())
	d.AddMarket(id, 1)
	d.SetSlotAndOracle(id, 1, 0)
	return d
}

func restingLimitOrder(orderID uint32, slot uint64, dir types.Direction, price uint64) types.Order {
	return types.Order{
		OrderID:         orderID,
		MarketIndex:     0,
		MarketType:      types.MarketTypePerp,
		Status:          types.OrderStatusOpen,
		OrderType:       types.OrderTypeLimit,
		Direction:       dir,
		BaseAssetAmount: 1,
		Price:           price,
		Slot:            slot,
	}
}

func benchmarkInsert(b *testing.B, n int) {
	id := types.MarketId{Index: 0, Kind: types.MarketTypePerp}
	user := solana.NewWallet().PublicKey()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := newBenchDLOB(id)
		for j := 0; j < n; j++ {
			order := restingLimitOrder(uint32(j+1), uint64(j+1), types.DirectionLong, uint64(1000+j))
			delta := OrderDelta{Kind: DeltaInsert, Id: order.Id(user), New: &order, Slot: order.Slot}
			if err := d.OnEvent(id, delta); err != nil {
				b.Fatalf("OnEvent: %v", err)
			}
		}
	}
}

func BenchmarkInsert10k(b *testing.B)  { benchmarkInsert(b, 10_000) }
func BenchmarkInsert100k(b *testing.B) { benchmarkInsert(b, 100_000) }

func benchmarkRemove(b *testing.B, n int) {
	id := types.MarketId{Index: 0, Kind: types.MarketTypePerp}
	user := solana.NewWallet().PublicKey()

	orders := make([]types.Order, n)
	for j := 0; j < n; j++ {
		orders[j] = restingLimitOrder(uint32(j+1), uint64(j+1), types.DirectionLong, uint64(1000+j))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		d := newBenchDLOB(id)
		for j := range orders {
			o := orders[j]
			d.OnEvent(id, OrderDelta{Kind: DeltaInsert, Id: o.Id(user), New: &o, Slot: o.Slot})
		}
		b.StartTimer()

		for j := range orders {
			o := orders[j]
			if err := d.OnEvent(id, OrderDelta{Kind: DeltaCancel, Id: o.Id(user), Old: &o, Slot: o.Slot}); err != nil {
				b.Fatalf("OnEvent cancel: %v", err)
			}
		}
	}
}

func BenchmarkRemove10k(b *testing.B)  { benchmarkRemove(b, 10_000) }
func BenchmarkRemove100k(b *testing.B) { benchmarkRemove(b, 100_000) }

func benchmarkGetBestBid(b *testing.B, n int) {
	id := types.MarketId{Index: 0, Kind: types.MarketTypePerp}
	user := solana.NewWallet().PublicKey()
	d := newBenchDLOB(id)

	for j := 0; j < n; j++ {
		o := restingLimitOrder(uint32(j+1), uint64(j+1), types.DirectionLong, uint64(1000+j))
		if err := d.OnEvent(id, OrderDelta{Kind: DeltaInsert, Id: o.Id(user), New: &o, Slot: o.Slot}); err != nil {
			b.Fatalf("OnEvent: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.GetBestBid(id); err != nil {
			b.Fatalf("GetBestBid: %v", err)
		}
	}
}

func BenchmarkGetBestBid10k(b *testing.B)  { benchmarkGetBestBid(b, 10_000) }
func BenchmarkGetBestBid100k(b *testing.B) { benchmarkGetBestBid(b, 100_000) }

func TestBenchmarkHelpersProduceDistinctOrderIds(t *testing.T) {
	t.Parallel()
	seen := make(map[uint32]bool)
	for j := 0; j < 1000; j++ {
		o := restingLimitOrder(uint32(j+1), uint64(j+1), types.DirectionLong, uint64(1000+j))
		if seen[o.OrderID] {
			t.Fatalf("duplicate order id %d at j=%d: %s", o.OrderID, j, fmt.Sprintf("%+v", o))
		}
		seen[o.OrderID] = true
	}
}
