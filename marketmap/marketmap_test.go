package marketmap

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/driftlabs/dlob-go/pkg/types"
	"github.com/driftlabs/dlob-go/transport"
)

func fakeDecoder(marketType types.MarketType, pubkey string, raw []byte) (MarketAccountData, error) {
	if len(raw) == 0 {
		return MarketAccountData{}, fmt.Errorf("empty account data")
	}
	return MarketAccountData{TickSize: uint64(raw[0]), StepSize: 1, MinOrderSize: 1, Raw: raw}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestMarketMapPutThenGet(t *testing.T) {
	t.Parallel()
	mm := New(fakeDecoder, nil, nil, discardLogger())
	id := types.MarketId{Index: 3, Kind: types.MarketTypePerp}

	if err := mm.Put(id, "pk", []byte{5}, 10); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := mm.Get(id)
	if !ok {
		t.Fatal("expected market to be present")
	}
	if got.Data.TickSize != 5 || got.LatestSlot != 10 {
		t.Errorf("got = %+v, want tick=5 slot=10", got)
	}
}

func TestMarketMapPutRejectsBackwardSlot(t *testing.T) {
	t.Parallel()
	mm := New(fakeDecoder, nil, nil, discardLogger())
	id := types.MarketId{Index: 1, Kind: types.MarketTypeSpot}

	mm.Put(id, "pk", []byte{9}, 100)
	mm.Put(id, "pk", []byte{9}, 50) // stale slot, must not regress

	got, _ := mm.Get(id)
	if got.LatestSlot != 100 {
		t.Errorf("LatestSlot = %d, want 100 (monotonic, no regression)", got.LatestSlot)
	}
}

func TestMarketMapPutPropagatesDecodeError(t *testing.T) {
	t.Parallel()
	mm := New(fakeDecoder, nil, nil, discardLogger())
	id := types.MarketId{Index: 0, Kind: types.MarketTypePerp}

	if err := mm.Put(id, "pk", nil, 1); err == nil {
		t.Fatal("expected decode error to propagate")
	}
	if _, ok := mm.Get(id); ok {
		t.Error("failed decode must not create an entry")
	}
}

func TestMarketMapSubscribeIsIdempotent(t *testing.T) {
	t.Parallel()
	mm := New(fakeDecoder, nil, nil, discardLogger())
	id := types.MarketId{Index: 0, Kind: types.MarketTypePerp}

	calls := 0
	resolve := func(types.MarketId) (solana.PublicKey, error) {
		calls++
		return solana.PublicKey{}, nil
	}

	if err := mm.Subscribe(context.Background(), []types.MarketId{id}, resolve); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := mm.Subscribe(context.Background(), []types.MarketId{id}, resolve); err != nil {
		t.Fatalf("Subscribe (second call): %v", err)
	}

	if calls != 1 {
		t.Errorf("resolve called %d times, want 1 (idempotent subscribe)", calls)
	}
	if !mm.IsSubscribed(id) {
		t.Error("expected id to be subscribed")
	}
}

func TestHandleUpdateAppliesOnlyToSubscribedMarket(t *testing.T) {
	t.Parallel()
	mm := New(fakeDecoder, nil, nil, discardLogger())
	id := types.MarketId{Index: 2, Kind: types.MarketTypeSpot}
	target := solana.NewWallet().PublicKey()

	resolve := func(types.MarketId) (solana.PublicKey, error) { return target, nil }
	if err := mm.Subscribe(context.Background(), []types.MarketId{id}, resolve); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	unrelated := solana.NewWallet().PublicKey()
	if handled := mm.HandleUpdate(transport.AccountUpdate{Pubkey: unrelated, Data: []byte{9}, Slot: 1}); handled {
		t.Error("HandleUpdate claimed an update for an unrelated pubkey")
	}
	if _, ok := mm.Get(id); ok {
		t.Fatal("market must not be populated by an unrelated update")
	}

	if handled := mm.HandleUpdate(transport.AccountUpdate{Pubkey: target, Data: []byte{9}, Slot: 1}); !handled {
		t.Fatal("HandleUpdate did not claim an update for its subscribed pubkey")
	}
	got, ok := mm.Get(id)
	if !ok || got.Data.TickSize != 9 {
		t.Errorf("got = %+v, ok=%v, want tick=9", got, ok)
	}
}
