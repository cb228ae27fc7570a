package decode

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"

	"github.com/driftlabs/dlob-go/pkg/types"
)

func encodeMarket(t *testing.T, discriminator [8]byte, layout marketLayout) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(discriminator[:])
	enc := bin.NewBorshEncoder(&buf)
	if err := enc.Encode(layout); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestMarketDecodesTickStepMinSize(t *testing.T) {
	t.Parallel()
	raw := encodeMarket(t, perpMarketDiscriminator, marketLayout{TickSize: 1, StepSize: 2, MinOrderSize: 3})

	got, err := Market(types.MarketTypePerp, "pk", raw)
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	if got.TickSize != 1 || got.StepSize != 2 || got.MinOrderSize != 3 {
		t.Errorf("got = %+v, want tick=1 step=2 min=3", got)
	}
}

func TestMarketRejectsWrongDiscriminatorForKind(t *testing.T) {
	t.Parallel()
	raw := encodeMarket(t, perpMarketDiscriminator, marketLayout{TickSize: 1})

	if _, err := Market(types.MarketTypeSpot, "pk", raw); err == nil {
		t.Fatal("expected discriminator mismatch error when decoding a perp account as spot")
	}
}

func TestMarketRejectsShortAccount(t *testing.T) {
	t.Parallel()
	if _, err := Market(types.MarketTypePerp, "pk", []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for data shorter than the discriminator")
	}
}

func TestAccountSkipsZeroedOrderSlots(t *testing.T) {
	t.Parallel()
	var layout userLayout
	layout.Orders[0] = types.Order{OrderID: 7, BaseAssetAmount: 100}
	// remaining 31 slots left zero-valued, as an on-chain empty order slot is.

	var buf bytes.Buffer
	buf.Write(userDiscriminator[:])
	if err := bin.NewBorshEncoder(&buf).Encode(layout); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	orders, err := Account(buf.Bytes())
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != 7 {
		t.Errorf("orders = %+v, want one order with id 7", orders)
	}
}
