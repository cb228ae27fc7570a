// Package decode is the demo account-decode path wired into cmd/dlobd: it
// turns raw Anchor account bytes into the small subset of fields
// MarketMap and AccountMap need. A production deployment would replace
// this with the real drift-ffi-sys-backed decoder (see ffi.OracleDecoder
// and the design note in ffi/ffi.go on why margin/order math stays
// opaque); market and account layouts, unlike margin math, are not
// cross-boundary in the original and are small enough to decode directly
// with gagliardetto/binary's Borsh reader, the same library
// gagliardetto/solana-go itself uses for account deserialization.
package decode

import (
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/driftlabs/dlob-go/internal/solana"
	"github.com/driftlabs/dlob-go/marketmap"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// PerpMarketDiscriminator, SpotMarketDiscriminator, and UserDiscriminator
// are the Anchor 8-byte account-type prefixes this decoder checks, and
// are also what callers pass to MarketMap.Sync's getProgramAccounts
// filter.
var (
	PerpMarketDiscriminator = [8]byte{0x0a, 0x0d, 0x48, 0x80, 0x40, 0x38, 0xc5, 0xba}
	SpotMarketDiscriminator = [8]byte{0x27, 0x4d, 0xba, 0xd1, 0xa6, 0xb6, 0x39, 0xd8}
	UserDiscriminator       = [8]byte{0xbe, 0x7c, 0xf9, 0x5e, 0x91, 0x74, 0xe7, 0xf0}

	perpMarketDiscriminator = PerpMarketDiscriminator
	spotMarketDiscriminator = SpotMarketDiscriminator
	userDiscriminator       = UserDiscriminator
)

// marketLayout is the fixed-offset subset of a perp/spot market account
// this engine reads: tick size, step size, and minimum order size,
// immediately following the discriminator. A production deployment reads
// these (and everything else the margin math needs) from the real Anchor
// IDL-generated layout instead.
type marketLayout struct {
	TickSize     uint64
	StepSize     uint64
	MinOrderSize uint64
}

// Market decodes raw into marketmap.MarketAccountData, checking the
// discriminator for marketType before reading the fixed fields that
// follow it.
func Market(marketType types.MarketType, pubkey string, raw []byte) (marketmap.MarketAccountData, error) {
	want := perpMarketDiscriminator
	if marketType == types.MarketTypeSpot {
		want = spotMarketDiscriminator
	}
	if !solana.HasDiscriminator(raw, want) {
		return marketmap.MarketAccountData{}, fmt.Errorf("market %s: discriminator mismatch for %s account", pubkey, marketType)
	}

	var layout marketLayout
	if err := bin.NewBorshDecoder(raw[solana.DiscriminatorLen:]).Decode(&layout); err != nil {
		return marketmap.MarketAccountData{}, fmt.Errorf("market %s: decode: %w", pubkey, err)
	}

	return marketmap.MarketAccountData{
		TickSize:     layout.TickSize,
		StepSize:     layout.StepSize,
		MinOrderSize: layout.MinOrderSize,
		Raw:          raw,
	}, nil
}

// userLayout mirrors the leading fields of a User account this engine
// reads: a fixed-size array of orders. types.Order's field order matches
// the on-chain Order struct so Borsh can decode it directly.
type userLayout struct {
	Orders [32]types.Order
}

// Account decodes raw into the user's current order array, checking the
// User account discriminator first.
func Account(raw []byte) ([]types.Order, error) {
	if !solana.HasDiscriminator(raw, userDiscriminator) {
		return nil, fmt.Errorf("account: discriminator mismatch for User account")
	}

	var layout userLayout
	if err := bin.NewBorshDecoder(raw[solana.DiscriminatorLen:]).Decode(&layout); err != nil {
		return nil, fmt.Errorf("account: decode: %w", err)
	}

	orders := make([]types.Order, 0, len(layout.Orders))
	for _, o := range layout.Orders {
		if o.OrderID == 0 {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}
