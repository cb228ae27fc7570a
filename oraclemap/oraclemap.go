// Package oraclemap maintains one live oracle price per configured
// MarketId, decoded from raw account bytes through the ffi.OracleDecoder
// boundary. It is the same btree-backed shape as marketmap, keyed by
// MarketId instead of market index.
package oraclemap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/btree"

	"github.com/driftlabs/dlob-go/ffi"
	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/internal/solana"
	"github.com/driftlabs/dlob-go/pkg/types"
	"github.com/driftlabs/dlob-go/rpcclient"
)

const btreeDegree = 32

// OracleEntry is one tracked oracle: its pubkey, source, latest decoded
// price, and the raw bytes/slot it was decoded from.
type OracleEntry struct {
	Pubkey solana.PublicKey
	Source ffi.OracleSource
	Price  ffi.OraclePriceData
	Raw    []byte
	Slot   uint64
}

// oracleItem wraps an OracleEntry for btree.Item, ordering by (market
// type, market index) so iteration is deterministic.
type oracleItem struct {
	id    types.MarketId
	entry *OracleEntry
}

func (a *oracleItem) Less(than btree.Item) bool {
	b := than.(*oracleItem)
	if a.id.Kind != b.id.Kind {
		return a.id.Kind < b.id.Kind
	}
	return a.id.Index < b.id.Index
}

// scaleFactors converts between oracle sources with different price
// multipliers, per spec §4.9's worked example: Pyth1K<->Pyth = 1000,
// Pyth1M<->Pyth = 1_000_000. Callers mixing sources must go through this
// table; the map only lists the base-unit scale relative to OracleSourcePyth.
var scaleFactors = map[ffi.OracleSource]uint64{
	ffi.OracleSourcePyth:               1,
	ffi.OracleSourcePyth1K:             1_000,
	ffi.OracleSourcePyth1M:             1_000_000,
	ffi.OracleSourcePythStableCoin:     1,
	ffi.OracleSourcePythPull:           1,
	ffi.OracleSourcePyth1KPull:         1_000,
	ffi.OracleSourcePyth1MPull:         1_000_000,
	ffi.OracleSourcePythStableCoinPull: 1,
	ffi.OracleSourceSwitchboard:        1,
	ffi.OracleSourceSwitchboardOnDemand: 1,
	ffi.OracleSourceQuoteAsset:         1,
	ffi.OracleSourcePrelaunch:          1,
	ffi.OracleSourcePythLazer:          1,
	ffi.OracleSourcePythLazer1K:        1_000,
	ffi.OracleSourcePythLazer1M:        1_000_000,
	ffi.OracleSourcePythLazerStableCoin: 1,
}

// ScaleFactor returns the multiplier to apply to a `from`-denominated price
// to express it in `to`'s units: price_to = price_from * ScaleFactor(from, to).
// Raw comparisons across sources are an error per spec §4.9; this is the
// only sanctioned conversion path. Only the coarser-to-finer direction
// (e.g. Pyth1M -> Pyth) has a factor; the reverse direction returns an
// error, so a price cannot be converted back through ScaleFactor.
func ScaleFactor(from, to ffi.OracleSource) (uint64, error) {
	fromScale, ok := scaleFactors[from]
	if !ok {
		return 0, fmt.Errorf("unknown oracle source %d", from)
	}
	toScale, ok := scaleFactors[to]
	if !ok {
		return 0, fmt.Errorf("unknown oracle source %d", to)
	}
	if toScale == 0 {
		return 0, fmt.Errorf("oracle source %d has zero scale", to)
	}
	if fromScale%toScale == 0 {
		return fromScale / toScale, nil
	}
	// from is the finer-grained unit (e.g. Pyth -> Pyth1K): the factor
	// would be a fraction, which an integer multiplier cannot express.
	return 0, fmt.Errorf("unsupported scale direction %d -> %d", from, to)
}

// OracleMap holds one entry per configured MarketId.
type OracleMap struct {
	mu      sync.RWMutex
	tree    *btree.BTree
	sources map[types.MarketId]ffi.OracleSource
	pubkeys map[types.MarketId]solana.PublicKey

	decoder ffi.OracleDecoder
	collector *metrics.Collector
	logger  *slog.Logger
}

// New returns an OracleMap configured with the given market -> (pubkey,
// source) bindings, decoding raw account bytes via decoder.
func New(bindings map[types.MarketId]struct {
	Pubkey solana.PublicKey
	Source ffi.OracleSource
}, decoder ffi.OracleDecoder, collector *metrics.Collector, logger *slog.Logger) *OracleMap {
	om := &OracleMap{
		tree:      btree.New(btreeDegree),
		sources:   make(map[types.MarketId]ffi.OracleSource),
		pubkeys:   make(map[types.MarketId]solana.PublicKey),
		decoder:   decoder,
		collector: collector,
		logger:    logger.With("component", "oraclemap"),
	}
	for id, b := range bindings {
		om.sources[id] = b.Source
		om.pubkeys[id] = b.Pubkey
	}
	return om
}

// Get returns the current oracle entry for id.
func (om *OracleMap) Get(id types.MarketId) (OracleEntry, bool) {
	om.mu.RLock()
	defer om.mu.RUnlock()
	item := om.tree.Get(&oracleItem{id: id})
	if item == nil {
		return OracleEntry{}, false
	}
	return *item.(*oracleItem).entry, true
}

// Decode decodes raw bytes for id through the ffi.OracleDecoder and stores
// the result, enforcing latest_slot monotonicity the same way MarketMap
// does.
func (om *OracleMap) Decode(ctx context.Context, id types.MarketId, raw []byte, slot uint64) error {
	om.mu.RLock()
	source, ok := om.sources[id]
	pubkey := om.pubkeys[id]
	om.mu.RUnlock()
	if !ok {
		return fmt.Errorf("oracle map: unconfigured market %s", id)
	}

	price, err := om.decoder.DecodeOracle(ctx, source, ffi.AccountInfo{Pubkey: pubkey, Data: raw, Slot: slot})
	if err != nil {
		if om.collector != nil {
			om.collector.RecordError("deserialize_error")
		}
		return fmt.Errorf("decode oracle %s: %w", id, err)
	}

	om.mu.Lock()
	defer om.mu.Unlock()
	if existing := om.tree.Get(&oracleItem{id: id}); existing != nil {
		if prev := existing.(*oracleItem).entry.Slot; slot < prev {
			slot = prev
		}
	}
	om.tree.ReplaceOrInsert(&oracleItem{id: id, entry: &OracleEntry{
		Pubkey: pubkey,
		Source: source,
		Price:  price,
		Raw:    raw,
		Slot:   slot,
	}})
	return nil
}

// Len returns the number of configured markets.
func (om *OracleMap) Len() int {
	om.mu.RLock()
	defer om.mu.RUnlock()
	return len(om.sources)
}

// Sync refreshes every configured oracle via the two-tier fallback from
// spec §4.9: getMultipleAccounts first, then per-account.
func (om *OracleMap) Sync(ctx context.Context, rpc *rpcclient.Client) error {
	om.mu.RLock()
	ids := make([]types.MarketId, 0, len(om.pubkeys))
	keys := make([]solana.PublicKey, 0, len(om.pubkeys))
	for id, pk := range om.pubkeys {
		ids = append(ids, id)
		keys = append(keys, pk)
	}
	om.mu.RUnlock()

	accs, slot, err := rpc.GetMultipleAccounts(ctx, keys)
	if err == nil {
		byPubkey := make(map[string]rpcclient.Account, len(accs))
		for _, acc := range accs {
			byPubkey[acc.Pubkey.String()] = acc
		}
		for i, id := range ids {
			acc, ok := byPubkey[keys[i].String()]
			if !ok {
				continue
			}
			if err := om.Decode(ctx, id, acc.Data, slot); err != nil {
				om.logger.Warn("sync: dropping malformed oracle account", "market", id, "error", err)
			}
		}
		return nil
	}
	om.logger.Warn("getMultipleAccounts unavailable, falling back to per-account", "error", err)

	for i, id := range ids {
		acc, accSlot, err := rpc.GetAccountInfo(ctx, keys[i])
		if err != nil {
			om.logger.Warn("sync: per-account fetch failed", "market", id, "error", err)
			continue
		}
		if err := om.Decode(ctx, id, acc.Data, accSlot); err != nil {
			om.logger.Warn("sync: dropping malformed oracle account", "market", id, "error", err)
		}
	}
	return nil
}
