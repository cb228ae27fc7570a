package dlob

import (
	"sync"

	"github.com/driftlabs/dlob-go/pkg/types"
)

// Exchange is every market the engine currently tracks, keyed by
// (market index, market type). It mirrors original_source/src/dlob/
// market.rs's Exchange type alias (a DashMap of DashMaps) with a Go
// RWMutex-protected map: markets are added once at subscription time and
// read far more often than they are added, so a single mutex guarding map
// membership (not the Markets themselves, which the notifier owns
// exclusively) is simpler than a sharded concurrent map here.
type Exchange struct {
	mu      sync.RWMutex
	markets map[types.MarketId]*Market
}

// NewExchange returns an Exchange with no markets.
func NewExchange() *Exchange {
	return &Exchange{markets: make(map[types.MarketId]*Market)}
}

// AddMarket registers id if it is not already present. Safe to call
// repeatedly; only the first call for a given id has any effect.
func (e *Exchange) AddMarket(id types.MarketId) *Market {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.markets[id]; ok {
		return m
	}
	m := NewMarket()
	e.markets[id] = m
	return m
}

// Market returns the Market for id, if it has been added.
func (e *Exchange) Market(id types.MarketId) (*Market, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.markets[id]
	return m, ok
}

// KnownMarkets returns every market id currently tracked. The slice is a
// snapshot copy safe to range over without holding any lock.
func (e *Exchange) KnownMarkets() []types.MarketId {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.MarketId, 0, len(e.markets))
	for id := range e.markets {
		out = append(out, id)
	}
	return out
}

// Len returns the number of markets currently tracked.
func (e *Exchange) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.markets)
}
