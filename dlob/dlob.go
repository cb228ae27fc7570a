package dlob

import (
	"context"

	"github.com/driftlabs/dlob-go/ffi"
	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/orderlist"
	"github.com/driftlabs/dlob-go/pkg/types"
	"github.com/driftlabs/dlob-go/snapshot"
)

// marketSnapshot is the per-market consistency unit described in
// spec.md §4.8: a single (slot, oracle price) pair a query reads once and
// reuses for every price resolution it performs, so a query never mixes
// prices resolved against two different oracle observations.
type marketSnapshot struct {
	Slot        uint64
	OraclePrice uint64
	TickSize    uint64
}

// DLOB is the public facade: every query a caller issues against the book
// goes through here. All mutation happens through OnEvent, which is meant
// to be called only from the single notifier goroutine described in
// spec.md §4.6 — DLOB itself does not serialize writers, it only
// guarantees that reads never observe a torn Market or a torn
// marketSnapshot.
type DLOB struct {
	exchange  *Exchange
	snapshots map[types.MarketId]*snapshot.Snapshot[marketSnapshot]
	collector *metrics.Collector
}

// New returns an empty DLOB.
func New(collector *metrics.Collector) *DLOB {
	return &DLOB{
		exchange:  NewExchange(),
		snapshots: make(map[types.MarketId]*snapshot.Snapshot[marketSnapshot]),
		collector: collector,
	}
}

// AddMarket registers id, creating its Market and its snapshot slot if not
// already present. Safe to call repeatedly.
func (d *DLOB) AddMarket(id types.MarketId, tickSize uint64) {
	d.exchange.AddMarket(id)
	if _, ok := d.snapshots[id]; !ok {
		d.snapshots[id] = snapshot.New(marketSnapshot{TickSize: tickSize})
	}
}

// SetSlotAndOracle publishes a new (slot, oracle price) pair for id. Only
// the notifier goroutine calls this.
func (d *DLOB) SetSlotAndOracle(id types.MarketId, slot uint64, oraclePrice uint64) {
	s, ok := d.snapshots[id]
	if !ok {
		return
	}
	cur := s.Get()
	cur.Slot = slot
	cur.OraclePrice = oraclePrice
	s.Set(cur)
}

func (d *DLOB) read(id types.MarketId) (*Market, marketSnapshot, bool) {
	m, ok := d.exchange.Market(id)
	if !ok {
		return nil, marketSnapshot{}, false
	}
	s, ok := d.snapshots[id]
	if !ok {
		return nil, marketSnapshot{}, false
	}
	return m, s.Get(), true
}

// OnEvent applies one OrderDelta to the book. It is the only mutating
// entry point into DLOB and must be called from a single goroutine
// (spec.md §4.6 "single writer").
func (d *DLOB) OnEvent(id types.MarketId, delta OrderDelta) error {
	m, snap, ok := d.read(id)
	if !ok {
		if d.collector != nil {
			d.collector.RecordError(ErrUnsubscribedAccess.String())
		}
		return newError(ErrUnsubscribedAccess, nil)
	}

	switch delta.Kind {
	case DeltaInsert:
		if err := delta.New.Validate(); err != nil {
			if d.collector != nil {
				d.collector.RecordError(ErrClassification.String())
			}
			return newError(ErrClassification, err)
		}
		m.Upsert(delta.Id, delta.New, snap.Slot)

	case DeltaCancel:
		m.Remove(delta.Id)

	case DeltaModify:
		m.Remove(delta.Id)
		if err := delta.New.Validate(); err != nil {
			if d.collector != nil {
				d.collector.RecordError(ErrClassification.String())
			}
			return newError(ErrClassification, err)
		}
		m.Upsert(delta.Id, delta.New, snap.Slot)
	}

	if d.collector != nil {
		d.collector.RecordApply(marketKey(id), deltaKindLabel(delta.Kind), 0)
	}
	return nil
}

// FindOrder returns the order for id in market if it is resident in the
// book right now.
func (d *DLOB) FindOrder(id types.MarketId, orderId types.OrderId) (*types.Order, error) {
	m, _, ok := d.read(id)
	if !ok {
		return nil, newError(ErrUnsubscribedAccess, nil)
	}
	n, ok := m.Find(orderId)
	if !ok {
		return nil, newError(ErrNotFound, nil)
	}
	return n.Order, nil
}

// L2Level is one aggregated price level in an L2 book view.
type L2Level struct {
	Price  uint64
	Amount uint64
}

// BestLevel is the best resolved price on one side of a market, together
// with the resident order it came from (spec.md §6 outbound
// get_best_bid/get_best_ask: Option<{price, size, order_id}>).
type BestLevel struct {
	Price   uint64
	Size    uint64
	OrderId types.OrderId
}

// GetBestBid returns the best (highest) matchable bid in market, comparing
// the front node's resolved price across every matchable kind bucket
// (Market, TakingLimit, RestingLimit, FloatingLimit) rather than assuming
// any one kind is always best — a FloatingLimit bid can easily beat a
// TakingLimit one once its oracle-relative price is resolved.
func (d *DLOB) GetBestBid(id types.MarketId) (BestLevel, error) {
	return d.bestLevel(id, types.SideBid)
}

// GetBestAsk returns the best (lowest) matchable ask in market.
func (d *DLOB) GetBestAsk(id types.MarketId) (BestLevel, error) {
	return d.bestLevel(id, types.SideAsk)
}

func (d *DLOB) bestLevel(id types.MarketId, side types.Side) (BestLevel, error) {
	m, snap, ok := d.read(id)
	if !ok {
		return BestLevel{}, newError(ErrUnsubscribedAccess, nil)
	}

	dir := types.DirectionLong
	lists := m.BidLists()
	if side == types.SideAsk {
		dir = types.DirectionShort
		lists = m.AskLists()
	}

	var best BestLevel
	found := false
	for _, list := range lists {
		n := list.Front()
		if n == nil {
			continue
		}
		_, kind := types.Classify(n.Order, snap.Slot)
		price, ok := types.PriceAt(kind, n.Order, dir, snap.Slot, snap.OraclePrice, snap.TickSize)
		if !ok {
			continue
		}
		if !found || betterPrice(side, price, best.Price) {
			best = BestLevel{Price: price, Size: n.Order.RemainingBaseAssetAmount(), OrderId: n.Id}
			found = true
		}
	}
	if !found {
		return BestLevel{}, newError(ErrNotFound, nil)
	}
	return best, nil
}

// betterPrice reports whether candidate is strictly better than current for
// side: higher for bids, lower for asks.
func betterPrice(side types.Side, candidate, current uint64) bool {
	if side == types.SideBid {
		return candidate > current
	}
	return candidate < current
}

// GetL2 returns up to depth aggregated price levels per side, most
// aggressive first.
func (d *DLOB) GetL2(id types.MarketId, depth int) (bids, asks []L2Level, err error) {
	m, snap, ok := d.read(id)
	if !ok {
		return nil, nil, newError(ErrUnsubscribedAccess, nil)
	}
	bids = d.l2Side(m.BidLists(), types.DirectionLong, snap, depth)
	asks = d.l2Side(m.AskLists(), types.DirectionShort, snap, depth)
	return bids, asks, nil
}

func (d *DLOB) l2Side(lists []*orderlist.List, dir types.Direction, snap marketSnapshot, depth int) []L2Level {
	levels := make(map[uint64]uint64)
	var order []uint64
	for _, list := range lists {
		list.Walk(func(n *orderlist.Node) bool {
			_, kind := types.Classify(n.Order, snap.Slot)
			price, ok := types.PriceAt(kind, n.Order, dir, snap.Slot, snap.OraclePrice, snap.TickSize)
			if !ok {
				return true
			}
			if _, seen := levels[price]; !seen {
				order = append(order, price)
			}
			levels[price] += n.Order.RemainingBaseAssetAmount()
			return depth <= 0 || len(order) < depth*4 // bound the scan; sort+trim below caps actual output
		})
	}

	out := make([]L2Level, 0, len(order))
	for _, p := range order {
		out = append(out, L2Level{Price: p, Amount: levels[p]})
	}
	sortLevels(out, dir)
	if depth > 0 && len(out) > depth {
		out = out[:depth]
	}
	return out
}

func sortLevels(levels []L2Level, dir types.Direction) {
	// Insertion sort: depth is always small (typical L2 requests ask for
	// 10-50 levels), so an O(n^2) sort on the already-small aggregated
	// slice is simpler than pulling in a generic sort here and avoids an
	// import just for this.
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0; j-- {
			swap := levels[j].Price > levels[j-1].Price
			if dir == types.DirectionShort {
				swap = levels[j].Price < levels[j-1].Price
			}
			if !swap {
				break
			}
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

// L3Order is one resident order in an L3 (full depth, unaggregated) book
// view.
type L3Order struct {
	Id     types.OrderId
	Price  uint64
	Amount uint64
	Kind   types.NodeKind
}

// GetL3 returns up to depth individual resident orders per side, in
// priority order.
func (d *DLOB) GetL3(id types.MarketId, depth int) (bids, asks []L3Order, err error) {
	m, snap, ok := d.read(id)
	if !ok {
		return nil, nil, newError(ErrUnsubscribedAccess, nil)
	}
	bids = d.l3Side(m.BidLists(), types.DirectionLong, snap, depth)
	asks = d.l3Side(m.AskLists(), types.DirectionShort, snap, depth)
	return bids, asks, nil
}

func (d *DLOB) l3Side(lists []*orderlist.List, dir types.Direction, snap marketSnapshot, depth int) []L3Order {
	var out []L3Order
	for _, list := range lists {
		if depth > 0 && len(out) >= depth {
			break
		}
		list.Walk(func(n *orderlist.Node) bool {
			if depth > 0 && len(out) >= depth {
				return false
			}
			_, kind := types.Classify(n.Order, snap.Slot)
			price, ok := types.PriceAt(kind, n.Order, dir, snap.Slot, snap.OraclePrice, snap.TickSize)
			if !ok {
				return true
			}
			out = append(out, L3Order{Id: n.Id, Price: price, Amount: n.Order.RemainingBaseAssetAmount(), Kind: kind})
			return true
		})
	}
	return out
}

// GetMakerBidsL3 returns the resting + floating limit bids for market,
// excluding every taking/market/trigger node (spec.md §4.6: "resting +
// floating limit orders only; never triggers, never market"). The result is
// the resting bids in price order followed by the floating bids in
// oracle-offset order, up to depth in all; the two buckets are not merged
// by resolved price, so the list is not maker-best-first across them.
func (d *DLOB) GetMakerBidsL3(id types.MarketId, depth int) ([]L3Order, error) {
	m, snap, ok := d.read(id)
	if !ok {
		return nil, newError(ErrUnsubscribedAccess, nil)
	}
	lists := []*orderlist.List{m.RestingLimitBids, m.FloatingLimitBids}
	return d.l3Side(lists, types.DirectionLong, snap, depth), nil
}

// GetMakerAsksL3 is GetMakerBidsL3 for the ask side.
func (d *DLOB) GetMakerAsksL3(id types.MarketId, depth int) ([]L3Order, error) {
	m, snap, ok := d.read(id)
	if !ok {
		return nil, newError(ErrUnsubscribedAccess, nil)
	}
	lists := []*orderlist.List{m.RestingLimitAsks, m.FloatingLimitAsks}
	return d.l3Side(lists, types.DirectionShort, snap, depth), nil
}

// GetTakerBidsL3 returns taker-side bid liquidity for market: every
// TakingLimit and Market node, plus any TriggerAbove order that
// triggerOraclePrice would fire right now, synthesized into a Market order
// via auctionMath and priced as such (spec.md §4.6: "TakingLimit + Market
// + simulated-triggered Trigger orders"). This is a pure, read-only
// simulation — unlike ReclassifyTriggers it never mutates the resident
// trigger node. The resident node leaves its trigger bucket only when
// ReclassifyTriggers is called on the market; the Notifier's slot handling
// does not call it.
func (d *DLOB) GetTakerBidsL3(ctx context.Context, id types.MarketId, perpMarket ffi.PerpMarket, auctionMath ffi.AuctionMath, triggerOraclePrice uint64, depth int) ([]L3Order, error) {
	return d.takerSideL3(ctx, id, perpMarket, auctionMath, triggerOraclePrice, types.SideBid, depth)
}

// GetTakerAsksL3 is GetTakerBidsL3 for the ask side (simulates TriggerBelow
// orders instead of TriggerAbove).
func (d *DLOB) GetTakerAsksL3(ctx context.Context, id types.MarketId, perpMarket ffi.PerpMarket, auctionMath ffi.AuctionMath, triggerOraclePrice uint64, depth int) ([]L3Order, error) {
	return d.takerSideL3(ctx, id, perpMarket, auctionMath, triggerOraclePrice, types.SideAsk, depth)
}

func (d *DLOB) takerSideL3(
	ctx context.Context,
	id types.MarketId,
	perpMarket ffi.PerpMarket,
	auctionMath ffi.AuctionMath,
	triggerOraclePrice uint64,
	side types.Side,
	depth int,
) ([]L3Order, error) {
	m, snap, ok := d.read(id)
	if !ok {
		return nil, newError(ErrUnsubscribedAccess, nil)
	}

	dir := types.DirectionLong
	lists := []*orderlist.List{m.MarketBids, m.TakingLimitBids}
	triggerBucket := m.TriggerAbove
	if side == types.SideAsk {
		dir = types.DirectionShort
		lists = []*orderlist.List{m.MarketAsks, m.TakingLimitAsks}
		triggerBucket = m.TriggerBelow
	}

	out := d.l3Side(lists, dir, snap, depth)

	triggerBucket.Walk(func(n *orderlist.Node) bool {
		if depth > 0 && len(out) >= depth {
			return false
		}
		if !triggerFired(n.Order, side, triggerOraclePrice) {
			return true
		}
		start, end, duration, err := auctionMath.SynthesizeTriggerAuction(ctx, perpMarket, ffi.OraclePriceData{Price: int64(triggerOraclePrice)}, n.Order.TriggerPrice)
		if err != nil {
			return true // this order just doesn't appear as a simulated taker; not a query-fatal error
		}
		synthesized := *n.Order
		synthesized.AuctionStartPrice = start
		synthesized.AuctionEndPrice = end
		synthesized.AuctionDuration = duration
		synthesized.Slot = snap.Slot
		price, ok := types.PriceAt(types.NodeKindMarket, &synthesized, dir, snap.Slot, snap.OraclePrice, snap.TickSize)
		if !ok {
			return true
		}
		out = append(out, L3Order{Id: n.Id, Price: price, Amount: synthesized.RemainingBaseAssetAmount(), Kind: types.NodeKindMarket})
		return true
	})

	return out, nil
}

// triggerFired reports whether triggerOraclePrice has crossed a resident
// (not-yet-fired) trigger order's threshold: TriggerAbove orders (bid side)
// fire once the oracle rises to or through TriggerPrice; TriggerBelow
// orders (ask side) fire once it falls to or through it.
func triggerFired(o *types.Order, side types.Side, triggerOraclePrice uint64) bool {
	if side == types.SideBid {
		return triggerOraclePrice >= o.TriggerPrice
	}
	return triggerOraclePrice <= o.TriggerPrice
}

func marketKey(id types.MarketId) string {
	return id.Kind.String() + "-" + itoa(uint64(id.Index))
}

func deltaKindLabel(k DeltaKind) string {
	switch k {
	case DeltaInsert:
		return "insert"
	case DeltaCancel:
		return "cancel"
	case DeltaModify:
		return "modify"
	default:
		return "unknown"
	}
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
