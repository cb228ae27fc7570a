// Package accountmap tracks the set of user accounts the engine is
// subscribed to, feeding the notifier with each user's current and
// previous order arrays so it can diff them (dlob.DiffUser). Concurrency
// shape matches marketmap/oraclemap: a plain mutex-guarded map keyed by
// pubkey, since the per-entry payload (a decoded User account, up to 32
// orders) is small and whole-entry replacement is always correct.
package accountmap

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/driftlabs/dlob-go/pkg/types"
)

// UserEntry is the last-known state of one subscribed user's orders.
type UserEntry struct {
	Orders []types.Order
	Slot   uint64
	// Applied is false until the first successful Apply for this user;
	// a freshly Subscribe'd entry has no last_applied_slot yet, so its
	// zero-value Slot must not be mistaken for a real observation when
	// deciding whether a later update is stale.
	Applied bool
}

// Decoder turns a raw User account payload into its order array.
type Decoder func(raw []byte) ([]types.Order, error)

// AccountMap is a concurrent map of subscribed user accounts.
type AccountMap struct {
	mu      sync.RWMutex
	entries map[types.UserPubkey]UserEntry
	decode  Decoder
	logger  *slog.Logger
}

// New returns an empty AccountMap.
func New(decode Decoder, logger *slog.Logger) *AccountMap {
	return &AccountMap{
		entries: make(map[types.UserPubkey]UserEntry),
		decode:  decode,
		logger:  logger.With("component", "accountmap"),
	}
}

// Get returns the current entry for user, if tracked.
func (am *AccountMap) Get(user types.UserPubkey) (UserEntry, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	e, ok := am.entries[user]
	return e, ok
}

// Subscribe starts tracking user with an empty order array. Idempotent.
func (am *AccountMap) Subscribe(user types.UserPubkey) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.entries[user]; !ok {
		am.entries[user] = UserEntry{}
	}
}

// Unsubscribe stops tracking user.
func (am *AccountMap) Unsubscribe(user types.UserPubkey) {
	am.mu.Lock()
	defer am.mu.Unlock()
	delete(am.entries, user)
}

// UnsubscribeAll drops every tracked user.
func (am *AccountMap) UnsubscribeAll() {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.entries = make(map[types.UserPubkey]UserEntry)
}

// Len returns the number of tracked users.
func (am *AccountMap) Len() int {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return len(am.entries)
}

// IsSubscribed reports whether user is currently tracked.
func (am *AccountMap) IsSubscribed(user types.UserPubkey) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	_, ok := am.entries[user]
	return ok
}

// ErrStaleUpdate is returned by Apply when slot is older than the last
// slot already applied for that user (spec.md §4.5 "an update with
// slot < last_applied_slot(user) must be dropped"; §8 requires
// last_applied_slot to be monotonic non-decreasing per user).
var ErrStaleUpdate = errors.New("accountmap: stale update")

// Apply decodes raw for user and returns (oldOrders, newOrders, ok) so the
// caller can hand both arrays to dlob.DiffUser; ok is false if user isn't
// subscribed (spec §7 UnsubscribedAccess). The entry (and its stored
// slot) is left untouched, and ErrStaleUpdate is returned, if slot is
// older than last_applied_slot(user); an equal slot is applied.
func (am *AccountMap) Apply(user types.UserPubkey, raw []byte, slot uint64) (old, cur []types.Order, ok bool, err error) {
	am.mu.Lock()
	defer am.mu.Unlock()

	prev, subscribed := am.entries[user]
	if !subscribed {
		return nil, nil, false, nil
	}
	if prev.Applied && slot < prev.Slot {
		return nil, nil, true, ErrStaleUpdate
	}

	decoded, err := am.decode(raw)
	if err != nil {
		return nil, nil, true, fmt.Errorf("decode user %s: %w", user.String(), err)
	}
	am.entries[user] = UserEntry{Orders: decoded, Slot: slot, Applied: true}
	return prev.Orders, decoded, true, nil
}
