// Package snapshot provides a single-writer, many-reader container that lets
// readers always see a fully-formed value, never a value under construction.
//
// The original implementation (spec.md §4.1) describes this as a double
// buffer: a writer builds the next generation in the inactive slot, then
// flips an index so readers start seeing it. In Go the same contract is
// simpler to get right with atomic.Pointer[T]: the writer builds the next
// generation off to the side (as an ordinary local value) and then swaps the
// pointer in one atomic Store. There is no "inactive buffer" to leak because
// the garbage collector reclaims the old generation once the last reader
// holding it drops its reference. Readers never block and never retry.
package snapshot

import "sync/atomic"

// Snapshot holds a *T that is replaced wholesale on every write. Get returns
// the most recently stored value: the one passed to New until Set or Swap
// replaces it. Get on a zero Snapshot that was never set returns the zero
// value of T.
type Snapshot[T any] struct {
	p atomic.Pointer[T]
}

// New returns a Snapshot already holding v.
func New[T any](v T) *Snapshot[T] {
	s := &Snapshot[T]{}
	s.p.Store(&v)
	return s
}

// Get returns the current value. Safe to call concurrently with Set from any
// number of goroutines.
func (s *Snapshot[T]) Get() T {
	p := s.p.Load()
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Set replaces the current value. Only the notifier goroutine that owns this
// Snapshot should call Set (spec.md §4.6 "single writer"); concurrent Set
// calls from multiple goroutines would race against each other's read-modify-
// write sequences even though the pointer swap itself is atomic.
func (s *Snapshot[T]) Set(v T) {
	s.p.Store(&v)
}

// Swap atomically replaces the current value with v and returns the previous
// one, analogous to atomic.Pointer.Swap. Useful when the writer wants the old
// generation back (e.g. to diff against it) without a separate Get+Set.
func (s *Snapshot[T]) Swap(v T) T {
	old := s.p.Swap(&v)
	if old == nil {
		var zero T
		return zero
	}
	return *old
}
