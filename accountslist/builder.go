// Package accountslist assembles the minimal ffi.AccountsList a margin
// calculation needs: the perp-market, spot-market, and oracle accounts
// referenced by a user's non-empty positions, plus the quote spot market
// and any explicitly forced markets. Pure computation over MarketMap/
// OracleMap's current caches, no teacher equivalent — built directly from
// spec §4.10 and the ffi.MarginMath signature in §6.
package accountslist

import (
	"fmt"

	"github.com/driftlabs/dlob-go/ffi"
	"github.com/driftlabs/dlob-go/marketmap"
	"github.com/driftlabs/dlob-go/oraclemap"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// Build returns the flattened account lists needed to margin-check a user
// holding positions in perpPositions and spotPositions, always including
// types.QuoteSpotMarket and any markets named in forced.
func Build(
	perpPositions []types.MarketId,
	spotPositions []types.MarketId,
	forced []types.MarketId,
	marketMap *marketmap.MarketMap,
	oracleMap *oraclemap.OracleMap,
) (ffi.AccountsList, error) {
	wanted := dedupe(perpPositions, spotPositions, forced, []types.MarketId{types.QuoteSpotMarket})

	var out ffi.AccountsList
	oracleSeen := make(map[types.MarketId]bool)

	for _, id := range wanted {
		market, ok := marketMap.Get(id)
		if !ok {
			return ffi.AccountsList{}, fmt.Errorf("accounts list: market %s not cached", id)
		}
		info := ffi.AccountInfo{Data: market.Data.Raw, Slot: market.LatestSlot}
		switch id.Kind {
		case types.MarketTypePerp:
			out.PerpMarkets = append(out.PerpMarkets, info)
		case types.MarketTypeSpot:
			out.SpotMarkets = append(out.SpotMarkets, info)
		}
		if market.LatestSlot > out.LatestSlot {
			out.LatestSlot = market.LatestSlot
		}

		if oracleSeen[id] {
			continue
		}
		oracleSeen[id] = true
		oracle, ok := oracleMap.Get(id)
		if !ok {
			return ffi.AccountsList{}, fmt.Errorf("accounts list: oracle for market %s not cached", id)
		}
		out.Oracles = append(out.Oracles, ffi.AccountInfo{Pubkey: oracle.Pubkey, Data: oracle.Raw, Slot: oracle.Slot})
		if oracle.Slot > out.LatestSlot {
			out.LatestSlot = oracle.Slot
		}
	}

	return out, nil
}

func dedupe(lists ...[]types.MarketId) []types.MarketId {
	seen := make(map[types.MarketId]bool)
	var out []types.MarketId
	for _, list := range lists {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
