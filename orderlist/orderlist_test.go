package orderlist

import (
	"testing"

	"github.com/driftlabs/dlob-go/pkg/types"
)

func id(n uint32) types.OrderId {
	return types.OrderId{OrderID: n}
}

func TestListAscendingOrder(t *testing.T) {
	t.Parallel()
	l := New(true)
	l.Insert(id(1), Key{Priority: 30}, &types.Order{OrderID: 1})
	l.Insert(id(2), Key{Priority: 10}, &types.Order{OrderID: 2})
	l.Insert(id(3), Key{Priority: 20}, &types.Order{OrderID: 3})

	var order []uint32
	l.Walk(func(n *Node) bool {
		order = append(order, n.Order.OrderID)
		return true
	})
	want := []uint32{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestListDescendingOrder(t *testing.T) {
	t.Parallel()
	l := New(false)
	l.Insert(id(1), Key{Priority: 30}, &types.Order{OrderID: 1})
	l.Insert(id(2), Key{Priority: 10}, &types.Order{OrderID: 2})
	l.Insert(id(3), Key{Priority: 20}, &types.Order{OrderID: 3})

	front := l.Front()
	if front == nil || front.Order.OrderID != 1 {
		t.Fatalf("front = %+v, want order 1 (highest priority)", front)
	}
}

func TestListTieBreakBySlotThenOrderID(t *testing.T) {
	t.Parallel()
	l := New(true)
	l.Insert(id(2), Key{Priority: 10, Slot: 5, OrderID: 2}, &types.Order{OrderID: 2})
	l.Insert(id(1), Key{Priority: 10, Slot: 5, OrderID: 1}, &types.Order{OrderID: 1})
	l.Insert(id(3), Key{Priority: 10, Slot: 4, OrderID: 3}, &types.Order{OrderID: 3})

	front := l.Front()
	if front.Order.OrderID != 3 {
		t.Fatalf("front = order %d, want 3 (earliest slot)", front.Order.OrderID)
	}
}

func TestListRemoveByID(t *testing.T) {
	t.Parallel()
	l := New(true)
	l.Insert(id(1), Key{Priority: 1}, &types.Order{OrderID: 1})
	l.Insert(id(2), Key{Priority: 2}, &types.Order{OrderID: 2})

	if !l.Remove(id(1)) {
		t.Fatal("Remove reported false for present id")
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
	if _, ok := l.Get(id(1)); ok {
		t.Fatal("removed order still retrievable by Get")
	}
	if l.Remove(id(99)) {
		t.Fatal("Remove reported true for absent id")
	}
}

func TestListInsertReplacesExistingID(t *testing.T) {
	t.Parallel()
	l := New(true)
	l.Insert(id(1), Key{Priority: 1}, &types.Order{OrderID: 1, Price: 100})
	l.Insert(id(1), Key{Priority: 1}, &types.Order{OrderID: 1, Price: 200})

	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after re-insert of same id", l.Len())
	}
	n, ok := l.Get(id(1))
	if !ok || n.Order.Price != 200 {
		t.Fatalf("got %+v, want updated price 200", n)
	}
}

func TestListTakeLimitsResults(t *testing.T) {
	t.Parallel()
	l := New(true)
	for i := uint32(0); i < 5; i++ {
		l.Insert(id(i), Key{Priority: uint64(i)}, &types.Order{OrderID: i})
	}
	got := l.Take(3)
	if len(got) != 3 {
		t.Fatalf("len(Take(3)) = %d, want 3", len(got))
	}
	if got[0].Order.OrderID != 0 || got[2].Order.OrderID != 2 {
		t.Fatalf("got %+v, want first three in ascending order", got)
	}
}

func TestListFrontEmpty(t *testing.T) {
	t.Parallel()
	l := New(true)
	if l.Front() != nil {
		t.Fatal("Front on empty list should be nil")
	}
}
