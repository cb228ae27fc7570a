package api

import (
	"github.com/driftlabs/dlob-go/dlob"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// BookReader is the subset of *dlob.DLOB this surface depends on, kept as
// an interface so handlers can be tested against a fake book rather than
// wiring up a full engine.
type BookReader interface {
	GetBestBid(id types.MarketId) (dlob.BestLevel, error)
	GetBestAsk(id types.MarketId) (dlob.BestLevel, error)
	GetL2(id types.MarketId, depth int) (bids, asks []dlob.L2Level, err error)
	GetL3(id types.MarketId, depth int) (bids, asks []dlob.L3Order, err error)
}
