// Package orderlist implements the ordered container backing each
// (market, side, node kind) bucket of the order book: a skiplist keyed by
// sort priority with a secondary index for O(log n) removal by order id.
//
// The sort key and comparator follow spec.md §4.3; the skiplist backing
// follows the same shape as the btree-backed price levels in
// VictorVVedtion-perp-dex's x/orderbook/keeper package, swapped for
// huandu/skiplist because a node list's key is a full (priority, slot,
// order_id) tuple rather than a price level that multiple orders share.
package orderlist

import (
	"github.com/huandu/skiplist"

	"github.com/driftlabs/dlob-go/pkg/types"
)

// Key is the sort key for one node: the kind-specific priority value plus the
// (slot, order_id) tie-break pair from spec.md §4.3.
type Key struct {
	Priority uint64
	Slot     uint64
	OrderID  uint32
}

// less orders two keys according to asc, the list's declared direction.
// Ties on Priority break first on Slot (earlier slot wins — it arrived
// first), then on OrderID for a fully total order.
func (k Key) less(other Key, asc bool) bool {
	if k.Priority != other.Priority {
		if asc {
			return k.Priority < other.Priority
		}
		return k.Priority > other.Priority
	}
	if k.Slot != other.Slot {
		return k.Slot < other.Slot
	}
	return k.OrderID < other.OrderID
}

// Node is one entry in the list: an order plus the key it was inserted
// under and the full id (user + order_id) it is indexed by. The key is
// captured at insert time rather than recomputed from Order on every
// comparison, since an order's dynamic fields (e.g. BaseAssetAmountFilled)
// must not perturb its position once placed.
type Node struct {
	Id    types.OrderId
	Key   Key
	Order *types.Order
}

// List is an ordered, id-indexed collection of Nodes for a single
// (market, side, node kind) bucket. A List is not safe for concurrent use;
// callers serialize access through the single notifier goroutine described
// in spec.md §4.6, or hold their own lock around a List they share.
type List struct {
	asc  bool
	sl   *skiplist.SkipList
	byID map[types.OrderId]*skiplist.Element
}

// keyComparator adapts Key.less into the skiplist.Comparable interface,
// directional per the list it was built for.
type keyComparator struct{ asc bool }

func (c keyComparator) Compare(lhs, rhs interface{}) int {
	ka, kb := lhs.(Key), rhs.(Key)
	if ka == kb {
		return 0
	}
	if ka.less(kb, c.asc) {
		return -1
	}
	return 1
}

// CalcScore gives the skiplist a fast-path ordering hint based on
// Priority alone, signed per asc the same way the pack's
// priceKeyAsc/priceKeyDesc comparators do (negative score for
// descending). Equal-Priority keys collapse to the same score, which is
// correct: Compare is what breaks the Slot/OrderID tie in that case, not
// CalcScore.
func (c keyComparator) CalcScore(key interface{}) float64 {
	k := key.(Key)
	score := float64(k.Priority)
	if !c.asc {
		score = -score
	}
	return score
}

// New returns an empty List. asc controls the Priority direction: true
// sorts lowest Priority first, false highest first. The Slot and OrderID
// tie-breaks are ascending either way (see Key.less).
func New(asc bool) *List {
	l := &List{asc: asc, byID: make(map[types.OrderId]*skiplist.Element)}
	l.sl = skiplist.New(keyComparator{asc: asc})
	return l
}

// Insert adds order under key, indexed by id. If an order with the same id
// is already present, it is removed first (callers should prefer an
// explicit Remove before Insert when replacing, but Insert alone is safe).
func (l *List) Insert(id types.OrderId, key Key, order *types.Order) {
	if _, exists := l.byID[id]; exists {
		l.Remove(id)
	}
	elem := l.sl.Set(key, &Node{Id: id, Key: key, Order: order})
	l.byID[id] = elem
}

// Remove deletes the node for id, if present. Reports whether a node was
// removed.
func (l *List) Remove(id types.OrderId) bool {
	elem, ok := l.byID[id]
	if !ok {
		return false
	}
	delete(l.byID, id)
	l.sl.Remove(elem.Key())
	return true
}

// Get returns the node for id, if present.
func (l *List) Get(id types.OrderId) (*Node, bool) {
	elem, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return elem.Value.(*Node), true
}

// Len returns the number of nodes in the list.
func (l *List) Len() int {
	return l.sl.Len()
}

// Front returns the best (first-in-order) node, or nil if the list is
// empty.
func (l *List) Front() *Node {
	elem := l.sl.Front()
	if elem == nil {
		return nil
	}
	return elem.Value.(*Node)
}

// Walk calls fn for every node in order, stopping early if fn returns
// false.
func (l *List) Walk(fn func(*Node) bool) {
	for elem := l.sl.Front(); elem != nil; elem = elem.Next() {
		if !fn(elem.Value.(*Node)) {
			return
		}
	}
}

// Take returns up to n nodes in order, for depth-limited queries like
// GetL3.
func (l *List) Take(n int) []*Node {
	if n <= 0 {
		return nil
	}
	out := make([]*Node, 0, n)
	l.Walk(func(nd *Node) bool {
		out = append(out, nd)
		return len(out) < n
	})
	return out
}
