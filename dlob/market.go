// Package dlob implements the decentralized limit order book cache: an
// in-memory, read-optimized mirror of on-chain order state built from
// streaming account updates. Nothing in this package persists to disk —
// on restart the engine resyncs from RPC and rebuilds the book from
// scratch (spec.md "Persisted state: None").
//
// Market and the surrounding Go types mirror the original_source/src/dlob
// package's Market struct: ten NodeLists per market (one per (kind, side)
// pair) rather than a single sorted set, so each kind's distinct sort rule
// and tie-break can use its own skiplist comparator instead of one
// comparator with a kind discriminant baked in.
package dlob

import (
	"github.com/driftlabs/dlob-go/orderlist"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// Market holds every resident order for one (market index, market type)
// pair, bucketed by node kind and side.
type Market struct {
	RestingLimitBids  *orderlist.List
	RestingLimitAsks  *orderlist.List
	FloatingLimitBids *orderlist.List
	FloatingLimitAsks *orderlist.List
	TakingLimitBids   *orderlist.List
	TakingLimitAsks   *orderlist.List
	MarketBids        *orderlist.List
	MarketAsks        *orderlist.List
	TriggerAbove      *orderlist.List // inactive triggers that fire on price rising through TriggerPrice (Side Bid)
	TriggerBelow      *orderlist.List // inactive triggers that fire on price falling through TriggerPrice (Side Ask)
}

// NewMarket returns an empty Market with every bucket's sort direction set
// per spec.md §4.3's node-kind/side table.
func NewMarket() *Market {
	return &Market{
		RestingLimitBids:  orderlist.New(false), // highest price first
		RestingLimitAsks:  orderlist.New(true),  // lowest price first
		FloatingLimitBids: orderlist.New(false), // highest oracle offset first
		FloatingLimitAsks: orderlist.New(true),  // lowest oracle offset first
		TakingLimitBids:   orderlist.New(true),  // earliest auction slot first
		TakingLimitAsks:   orderlist.New(true),
		MarketBids:        orderlist.New(true), // earliest slot first, both sides
		MarketAsks:        orderlist.New(true),
		TriggerAbove:      orderlist.New(true),  // lowest trigger price fires soonest
		TriggerBelow:      orderlist.New(false), // highest trigger price fires soonest
	}
}

// listFor returns the bucket order belongs in at slot, and the sort key it
// should be inserted under. ok is false for order types this book does not
// track (spec.md §3 "Supported order types").
func (m *Market) listFor(o *types.Order, slot uint64) (list *orderlist.List, key orderlist.Key, ok bool) {
	if !supportedOrderType(o.OrderType) {
		return nil, orderlist.Key{}, false
	}

	side, kind := types.Classify(o, slot)
	key = orderlist.Key{Slot: o.Slot, OrderID: o.OrderID}

	switch kind {
	case types.NodeKindRestingLimit:
		key.Priority = o.Price
		if side == types.SideBid {
			return m.RestingLimitBids, key, true
		}
		return m.RestingLimitAsks, key, true

	case types.NodeKindFloatingLimit:
		key.Priority = encodeOffset(o.OraclePriceOffset)
		if side == types.SideBid {
			return m.FloatingLimitBids, key, true
		}
		return m.FloatingLimitAsks, key, true

	case types.NodeKindTakingLimit:
		key.Priority = o.Slot
		if side == types.SideBid {
			return m.TakingLimitBids, key, true
		}
		return m.TakingLimitAsks, key, true

	case types.NodeKindMarket:
		key.Priority = o.Slot
		if side == types.SideBid {
			return m.MarketBids, key, true
		}
		return m.MarketAsks, key, true

	case types.NodeKindTrigger:
		key.Priority = o.TriggerPrice
		if side == types.SideBid {
			return m.TriggerAbove, key, true
		}
		return m.TriggerBelow, key, true

	default:
		return nil, orderlist.Key{}, false
	}
}

// Upsert places order (or its updated key, if already present) into the
// correct bucket for slot. Any prior placement under a different bucket
// (e.g. after a reclassification) is removed first.
func (m *Market) Upsert(id types.OrderId, o *types.Order, slot uint64) {
	m.Remove(id)
	list, key, ok := m.listFor(o, slot)
	if !ok {
		return
	}
	list.Insert(id, key, o)
}

// Remove deletes id from whichever bucket currently holds it. Reports
// whether anything was removed.
func (m *Market) Remove(id types.OrderId) bool {
	removed := false
	for _, l := range m.all() {
		if l.Remove(id) {
			removed = true
		}
	}
	return removed
}

// Find returns the node for id across every bucket, if present.
func (m *Market) Find(id types.OrderId) (*orderlist.Node, bool) {
	for _, l := range m.all() {
		if n, ok := l.Get(id); ok {
			return n, true
		}
	}
	return nil, false
}

func (m *Market) all() []*orderlist.List {
	return []*orderlist.List{
		m.RestingLimitBids, m.RestingLimitAsks,
		m.FloatingLimitBids, m.FloatingLimitAsks,
		m.TakingLimitBids, m.TakingLimitAsks,
		m.MarketBids, m.MarketAsks,
		m.TriggerAbove, m.TriggerBelow,
	}
}

// BidLists and AskLists return a market's bid-side (respectively ask-side)
// buckets in the priority order a matching sweep should consult them:
// Market orders first (they take any price), then TakingLimit, then
// RestingLimit, then FloatingLimit. Trigger orders are never matchable
// directly and are excluded.
func (m *Market) BidLists() []*orderlist.List {
	return []*orderlist.List{m.MarketBids, m.TakingLimitBids, m.RestingLimitBids, m.FloatingLimitBids}
}

func (m *Market) AskLists() []*orderlist.List {
	return []*orderlist.List{m.MarketAsks, m.TakingLimitAsks, m.RestingLimitAsks, m.FloatingLimitAsks}
}

func supportedOrderType(t types.OrderType) bool {
	switch t {
	case types.OrderTypeMarket, types.OrderTypeTriggerMarket, types.OrderTypeLimit, types.OrderTypeTriggerLimit, types.OrderTypeOracle:
		return true
	default:
		return false
	}
}

// encodeOffset maps a signed i32 oracle price offset onto the uint64
// ordering orderlist.Key expects, preserving sign order: the most negative
// offset sorts lowest, the most positive sorts highest.
func encodeOffset(offset int32) uint64 {
	return uint64(int64(offset) + (1 << 31))
}
