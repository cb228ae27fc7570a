// Package marketmap maintains the live set of market accounts (tick size,
// step size, minimum order size, and the raw account bytes the margin math
// needs) per market type, keyed by market index. It is adapted from
// VictorVVedtion-perp-dex's btree-backed order book side
// (x/orderbook/keeper/orderbook_btree.go): the same priceLevelItem/
// btree.Item pattern, repurposed to key by market index instead of price
// since a market map only ever needs ordered iteration for sync progress
// reporting, not range queries.
package marketmap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/btree"

	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/pkg/types"
	"github.com/driftlabs/dlob-go/rpcclient"
	"github.com/driftlabs/dlob-go/transport"
)

const btreeDegree = 32

// MarketAccountData is the decoded subset of a perp or spot market account
// the engine needs: the pricing parameters Snapshot carries per market,
// plus the raw bytes for anything the margin math needs that this package
// doesn't itself decode.
type MarketAccountData struct {
	MarketId     types.MarketId
	TickSize     uint64
	StepSize     uint64
	MinOrderSize uint64
	Raw          []byte
}

// MarketWithSlot pairs a decoded market account with the slot it was last
// observed at, per spec's "market_index -> (market_account_data, last_slot)".
type MarketWithSlot struct {
	Data       MarketAccountData
	LatestSlot uint64
}

// marketItem wraps a MarketWithSlot for btree.Item, ordering by market
// index. Mirrors priceLevelItem.Less exactly, substituting index for price.
type marketItem struct {
	index uint16
	entry *MarketWithSlot
}

func (a *marketItem) Less(than btree.Item) bool {
	return a.index < than.(*marketItem).index
}

// Decoder turns a raw account payload into MarketAccountData, checking the
// account discriminator and extracting pricing parameters. It is supplied
// by the caller (the real implementation lives behind the FFI/Anchor
// decode boundary; tests use a fake).
type Decoder func(marketType types.MarketType, pubkey string, raw []byte) (MarketAccountData, error)

// MarketMap is a per-MarketType btree of MarketWithSlot, subscribed to
// live account updates and refreshable via a three-tier RPC sync.
//
// Dispatch is single-consumer: a WSFeed exposes one shared AccountUpdates
// channel, so MarketMap does not spawn a per-market goroutine to read it
// (N goroutines racing to receive from the same channel would each only
// see a fraction of the updates, silently starving the markets whose
// goroutine lost the race). Instead HandleUpdate is called once per
// incoming update by the composition root's single dispatch loop, which
// looks the pubkey up in byPubkey and applies it if it matches a tracked
// market.
type MarketMap struct {
	mu       sync.RWMutex
	trees    map[types.MarketType]*btree.BTree
	pubkeys  map[types.MarketId]string            // market id -> account pubkey
	byPubkey map[string]types.MarketId // account pubkey -> market id, for dispatch

	decode Decoder
	feed   *transport.WSFeed

	collector *metrics.Collector
	logger    *slog.Logger
}

// New returns an empty MarketMap. feed may be nil in tests that only
// exercise Sync, since Subscribe is the only caller of it.
func New(decode Decoder, feed *transport.WSFeed, collector *metrics.Collector, logger *slog.Logger) *MarketMap {
	return &MarketMap{
		trees:     make(map[types.MarketType]*btree.BTree),
		pubkeys:   make(map[types.MarketId]string),
		byPubkey:  make(map[string]types.MarketId),
		decode:    decode,
		feed:      feed,
		collector: collector,
		logger:    logger.With("component", "marketmap"),
	}
}

func (mm *MarketMap) treeFor(kind types.MarketType) *btree.BTree {
	t, ok := mm.trees[kind]
	if !ok {
		t = btree.New(btreeDegree)
		mm.trees[kind] = t
	}
	return t
}

// Get returns the current entry for id, if known.
func (mm *MarketMap) Get(id types.MarketId) (MarketWithSlot, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	t, ok := mm.trees[id.Kind]
	if !ok {
		return MarketWithSlot{}, false
	}
	item := t.Get(&marketItem{index: id.Index})
	if item == nil {
		return MarketWithSlot{}, false
	}
	return *item.(*marketItem).entry, true
}

// Len returns the number of markets tracked across all market types.
func (mm *MarketMap) Len() int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	total := 0
	for _, t := range mm.trees {
		total += t.Len()
	}
	return total
}

// IsSubscribed reports whether id has a live account subscription.
func (mm *MarketMap) IsSubscribed(id types.MarketId) bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	_, ok := mm.pubkeys[id]
	return ok
}

// Put decodes and stores raw for id, enforcing the monotonic-slot and
// discriminator invariants from spec §4.8. Exported so callers that
// already have decoded bytes (tests, alternate ingestion paths) can seed
// the map directly rather than only through Subscribe/Sync.
func (mm *MarketMap) Put(id types.MarketId, pubkey string, raw []byte, slot uint64) error {
	data, err := mm.decode(id.Kind, pubkey, raw)
	if err != nil {
		if mm.collector != nil {
			mm.collector.RecordError("deserialize_error")
		}
		return fmt.Errorf("decode market %s: %w", id, err)
	}
	data.MarketId = id

	mm.mu.Lock()
	defer mm.mu.Unlock()
	t := mm.treeFor(id.Kind)
	if existing := t.Get(&marketItem{index: id.Index}); existing != nil {
		if prev := existing.(*marketItem).entry.LatestSlot; slot < prev {
			slot = prev // latest_slot is monotonic non-decreasing (spec §4.8)
		}
	}
	t.ReplaceOrInsert(&marketItem{index: id.Index, entry: &MarketWithSlot{Data: data, LatestSlot: slot}})
	return nil
}

// Subscribe registers each id not already subscribed, idempotent per spec
// §4.8: it resolves the market's account pubkey, records the pubkey<->id
// mapping HandleUpdate dispatches against, and tells feed to subscribe if
// one was supplied. It does not itself read from the feed; see
// HandleUpdate.
func (mm *MarketMap) Subscribe(ctx context.Context, ids []types.MarketId, pubkeyOf func(types.MarketId) (solana.PublicKey, error)) error {
	for _, id := range ids {
		if mm.IsSubscribed(id) {
			continue
		}
		pubkey, err := pubkeyOf(id)
		if err != nil {
			return fmt.Errorf("resolve pubkey for %s: %w", id, err)
		}
		pubkeyStr := pubkey.String()

		if mm.feed != nil {
			if err := mm.feed.SubscribeAccount(pubkey); err != nil {
				return fmt.Errorf("subscribe account %s: %w", id, err)
			}
		}

		mm.mu.Lock()
		mm.pubkeys[id] = pubkeyStr
		mm.byPubkey[pubkeyStr] = id
		mm.mu.Unlock()
	}
	return nil
}

// HandleUpdate applies upd if its pubkey matches a subscribed market,
// reporting whether it did. Meant to be called once per update from the
// composition root's single WSFeed.AccountUpdates() dispatch loop, which
// also routes updates to AccountMap — a shared channel must have exactly
// one reader, so neither cache may spawn its own consumer goroutine.
func (mm *MarketMap) HandleUpdate(upd transport.AccountUpdate) bool {
	pubkeyStr := upd.Pubkey.String()
	mm.mu.RLock()
	id, ok := mm.byPubkey[pubkeyStr]
	mm.mu.RUnlock()
	if !ok {
		return false
	}
	if err := mm.Put(id, pubkeyStr, upd.Data, upd.Slot); err != nil {
		mm.logger.Warn("dropping market update", "market", id, "error", err)
	}
	return true
}

// Unsubscribe drops id's subscription, if any.
func (mm *MarketMap) Unsubscribe(id types.MarketId) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if pubkeyStr, ok := mm.pubkeys[id]; ok {
		delete(mm.byPubkey, pubkeyStr)
	}
	delete(mm.pubkeys, id)
}

// UnsubscribeAll drops every subscription.
func (mm *MarketMap) UnsubscribeAll() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.pubkeys = make(map[types.MarketId]string)
	mm.byPubkey = make(map[string]types.MarketId)
}

// SyncResult is the outcome of a one-shot bulk refresh.
type SyncResult struct {
	MarketsLoaded int
	ObservedSlot  uint64
	Tier          int // 1 = getProgramAccounts, 2 = getMultipleAccounts, 3 = per-account
}

// Sync performs the three-tier fallback from spec §4.8: getProgramAccounts
// filtered by the market discriminator; if that is unavailable (many RPC
// providers disable it), getMultipleAccounts over the caller-supplied
// knownPubkeys in chunks of <=64; if that also fails, fetch each of
// knownPubkeys individually. The program's State account is not read, so
// tiers 2 and 3 load only the markets whose pubkeys the caller passes in.
func (mm *MarketMap) Sync(ctx context.Context, rpc *rpcclient.Client, programID solana.PublicKey, marketType types.MarketType, discriminator []byte, knownPubkeys []string) (SyncResult, error) {
	accounts, slot, err := rpc.GetProgramAccounts(ctx, programID, []rpcclient.ProgramAccountsFilter{{Bytes: discriminator}})
	if err == nil && len(accounts) > 0 {
		loaded := 0
		for i, acc := range accounts {
			id := types.MarketId{Index: uint16(i), Kind: marketType}
			if putErr := mm.Put(id, acc.Pubkey.String(), acc.Data, slot); putErr != nil {
				mm.logger.Warn("sync: dropping malformed market account", "pubkey", acc.Pubkey, "error", putErr)
				continue
			}
			loaded++
		}
		return SyncResult{MarketsLoaded: loaded, ObservedSlot: slot, Tier: 1}, nil
	}
	mm.logger.Warn("getProgramAccounts unavailable, falling back", "error", err)

	keys := make([]solana.PublicKey, 0, len(knownPubkeys))
	for _, s := range knownPubkeys {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			mm.logger.Warn("sync: skipping malformed pubkey", "pubkey", s, "error", err)
			continue
		}
		keys = append(keys, pk)
	}

	if len(keys) > 0 {
		accs, slot2, err := rpc.GetMultipleAccounts(ctx, keys)
		if err == nil {
			loaded := 0
			for i, acc := range accs {
				id := types.MarketId{Index: uint16(i), Kind: marketType}
				if putErr := mm.Put(id, acc.Pubkey.String(), acc.Data, slot2); putErr != nil {
					continue
				}
				loaded++
			}
			return SyncResult{MarketsLoaded: loaded, ObservedSlot: slot2, Tier: 2}, nil
		}
		mm.logger.Warn("getMultipleAccounts unavailable, falling back to per-account", "error", err)
	}

	loaded := 0
	var lastSlot uint64
	for i, pk := range keys {
		acc, accSlot, err := rpc.GetAccountInfo(ctx, pk)
		if err != nil {
			mm.logger.Warn("sync: per-account fetch failed", "pubkey", pk, "error", err)
			continue
		}
		id := types.MarketId{Index: uint16(i), Kind: marketType}
		if err := mm.Put(id, pk.String(), acc.Data, accSlot); err != nil {
			continue
		}
		loaded++
		lastSlot = accSlot
	}
	return SyncResult{MarketsLoaded: loaded, ObservedSlot: lastSlot, Tier: 3}, nil
}
