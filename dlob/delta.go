package dlob

import "github.com/driftlabs/dlob-go/pkg/types"

// DeltaKind classifies one change between a user's previous and current
// 32-slot order array.
type DeltaKind uint8

const (
	DeltaInsert DeltaKind = iota
	DeltaCancel
	DeltaModify
)

// OrderDelta is one change produced by DiffUser: an order slot that
// appeared, disappeared, or changed between two observations of the same
// User account.
type OrderDelta struct {
	Kind DeltaKind
	Id   types.OrderId
	Old  *types.Order  // nil for Insert
	New  *types.Order  // nil for Cancel
	Slot uint64        // slot the new account snapshot was observed at
}

// DiffUser compares a user's order array as it was (old) against as it now
// is (cur) and returns the deltas needed to bring the book in sync, per
// spec.md §4.6. Both slices are always length 32 (the fixed on-chain User
// account order array) but DiffUser does not require that — any length
// works, indexed by position, which is what the protocol uses as the
// stable identity of a slot within a user's account between updates: an
// order that occupies order-array position i keeps that identity only
// until it closes, at which point the chain reuses the slot for a new
// order with a different order_id. That reuse produces a Cancel of the old
// order followed by an Insert of the new one; a Modify is produced only when
// the same order_id still occupies the position with changed fields.
func DiffUser(user types.UserPubkey, old, cur []types.Order, slot uint64) []OrderDelta {
	n := len(cur)
	if len(old) > n {
		n = len(old)
	}

	var deltas []OrderDelta
	for i := 0; i < n; i++ {
		var oldOrder, curOrder *types.Order
		if i < len(old) && old[i].Status == types.OrderStatusOpen {
			o := old[i]
			oldOrder = &o
		}
		if i < len(cur) && cur[i].Status == types.OrderStatusOpen {
			o := cur[i]
			curOrder = &o
		}

		switch {
		case oldOrder == nil && curOrder == nil:
			continue

		case oldOrder == nil && curOrder != nil:
			deltas = append(deltas, OrderDelta{
				Kind: DeltaInsert,
				Id:   curOrder.Id(user),
				New:  curOrder,
				Slot: slot,
			})

		case oldOrder != nil && curOrder == nil:
			deltas = append(deltas, OrderDelta{
				Kind: DeltaCancel,
				Id:   oldOrder.Id(user),
				Old:  oldOrder,
				Slot: slot,
			})

		case oldOrder.OrderID == curOrder.OrderID:
			if ordersEqual(oldOrder, curOrder) {
				continue
			}
			deltas = append(deltas, OrderDelta{
				Kind: DeltaModify,
				Id:   curOrder.Id(user),
				Old:  oldOrder,
				New:  curOrder,
				Slot: slot,
			})

		default:
			// Slot position reused by a different order_id: the old order
			// closed and a new one opened in the same array position.
			deltas = append(deltas, OrderDelta{
				Kind: DeltaCancel,
				Id:   oldOrder.Id(user),
				Old:  oldOrder,
				Slot: slot,
			})
			deltas = append(deltas, OrderDelta{
				Kind: DeltaInsert,
				Id:   curOrder.Id(user),
				New:  curOrder,
				Slot: slot,
			})
		}
	}
	return deltas
}

func ordersEqual(a, b *types.Order) bool {
	return *a == *b
}
