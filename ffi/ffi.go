// Package ffi models the boundary to the native margin, liquidation, and
// oracle-decoding math that the original implementation calls across a
// cgo/FFI boundary (original_source/crates/drift-ffi-sys). That math is
// never reimplemented in Go: this package only declares the interfaces and
// value types the rest of the engine needs to call across that boundary,
// matching the shapes in drift-ffi-sys/src/types.rs (AccountsList,
// MarginCalculation, MarginContextMode, OraclePriceData) so a real FFI or
// RPC-backed implementation can be dropped in without touching callers.
package ffi

import (
	"context"

	"github.com/driftlabs/dlob-go/internal/solana"
)

// OracleSource identifies which oracle program owns a price account
// (Pyth, Switchboard, PythPull, ...). The concrete set of sources is part
// of the opaque boundary; callers only need to carry the value through.
type OracleSource uint8

const (
	OracleSourcePyth OracleSource = iota
	OracleSourcePyth1K
	OracleSourcePyth1M
	OracleSourcePythStableCoin
	OracleSourcePythPull
	OracleSourcePyth1KPull
	OracleSourcePyth1MPull
	OracleSourcePythStableCoinPull
	OracleSourceSwitchboard
	OracleSourceSwitchboardOnDemand
	OracleSourceQuoteAsset
	OracleSourcePrelaunch
	OracleSourcePythLazer
	OracleSourcePythLazer1K
	OracleSourcePythLazer1M
	OracleSourcePythLazerStableCoin
)

// AccountInfo is the minimal account payload the FFI layer needs to
// decode a market, user, or oracle account: owner, data, and the slot it
// was observed at.
type AccountInfo struct {
	Pubkey solana.PublicKey
	Owner  solana.PublicKey
	Data   []byte
	Slot   uint64
}

// OraclePriceData is the decoded output of an oracle account, mirroring
// drift-ffi-sys::types::OraclePriceData.
type OraclePriceData struct {
	Price                   int64
	Confidence              uint64
	Delay                   int64
	HasSufficientDataPoints bool
}

// PerpMarket and SpotMarket are opaque decoded market accounts. The DLOB
// only needs a handful of fields out of them (tick size, step size,
// min order size for pkg/types.MarketParams); everything else is carried
// as raw bytes for the margin math to consume, since reimplementing the
// full account layout in Go would duplicate the FFI crate instead of
// treating it as opaque.
type PerpMarket struct {
	Raw []byte
}

type SpotMarket struct {
	Raw []byte
}

// UserAccount is an opaque decoded User account (the 32-order array plus
// positions and balances used for margin calculation).
type UserAccount struct {
	Raw []byte
}

// AccountsList is the Go equivalent of drift-ffi-sys::types::AccountsList:
// the flat account arrays the margin calculator needs, assembled by
// accountslist.Build from the engine's caches.
type AccountsList struct {
	PerpMarkets []AccountInfo
	SpotMarkets []AccountInfo
	Oracles     []AccountInfo
	LatestSlot  uint64
}

// MarginRequirementType selects which margin ratio a calculation uses.
type MarginRequirementType uint8

const (
	MarginRequirementInitial MarginRequirementType = iota
	MarginRequirementFill
	MarginRequirementMaintenance
)

// MarginContextMode is the Go equivalent of drift-ffi-sys::types::
// MarginContextMode. It carries an explicit
// MarginRequirementType rather than the original's two bare
// StandardMaintenance/StandardInitial variants, so callers always state
// which ratio they mean instead of relying on an implicit default — see
// DESIGN.md's Open Question decision on this type.
type MarginContextMode struct {
	RequirementType MarginRequirementType
}

// MarginCalculation is the Go equivalent of drift-ffi-sys::types::
// MarginCalculation. Collateral and liability values use big.Int-free
// int64/uint64 scaled fixed-point the same way Order prices do elsewhere
// in this module; the native layer uses i128/u128 internally but nothing
// at this boundary needs values that large for query-time use.
type MarginCalculation struct {
	TotalCollateral             int64
	MarginRequirement           uint64
	AllOraclesValid             bool
	WithPerpIsolatedLiability   bool
	WithSpotIsolatedLiability   bool
	TotalSpotAssetValue         int64
	TotalSpotLiabilityValue     uint64
	TotalPerpLiabilityValue     uint64
	TotalPerpPnl                int64
	OpenOrdersMarginRequirement uint64
}

// FreeCollateral returns max(0, TotalCollateral - MarginRequirement),
// matching MarginCalculation::get_free_collateral in drift-ffi-sys.
func (m MarginCalculation) FreeCollateral() uint64 {
	free := m.TotalCollateral - int64(m.MarginRequirement)
	if free < 0 {
		return 0
	}
	return uint64(free)
}

// OracleDecoder decodes a raw oracle account into price data. Implemented
// by a real FFI/cgo binding in production; a fake is used in tests.
type OracleDecoder interface {
	DecodeOracle(ctx context.Context, source OracleSource, account AccountInfo) (OraclePriceData, error)
}

// OrderMath exposes the native auction/limit-price math the original
// implementation keeps in Rust. The DLOB's own pkg/types.PriceAt covers
// the pure client-side classification and pricing rules from spec.md
// §4.4; this interface is reserved for math that genuinely cannot be
// ported (e.g. protocol-exact tick rounding shared with on-chain
// execution) and is not called by the pure pricing path.
type OrderMath interface {
	StandardizeBaseAssetAmount(amount, stepSize uint64) uint64
}

// MarginMath computes margin requirements and free collateral for a user
// account against a flattened AccountsList, matching
// drift_ffi_sys::margin_requirement/get_oracle_price in
// crates/drift-ffi/src/exports.rs.
type MarginMath interface {
	MarginRequirement(ctx context.Context, user UserAccount, accounts AccountsList, mode MarginContextMode) (MarginCalculation, error)
}

// AuctionMath synthesizes the auction parameters used to turn a fired
// Trigger order into a Market order during reclassification (spec.md
// §4.5), since the exact start/end price and duration for a triggered
// order come from protocol-level risk parameters the DLOB does not
// itself own.
type AuctionMath interface {
	SynthesizeTriggerAuction(ctx context.Context, market PerpMarket, oracle OraclePriceData, triggerPrice uint64) (startPrice, endPrice int64, durationSlots uint8, err error)
}
