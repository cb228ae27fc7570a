// dlobd is the example composition root: it loads configuration, builds
// the MarketMap/OracleMap/AccountMap caches and the DLOB itself, starts
// the websocket transport and the single notifier goroutine that applies
// updates to the book, serves the read-only demo API, and waits for
// SIGINT/SIGTERM.
//
//	main.go                        — entry point, wiring, signal wait
//	internal/config                — YAML + DLOB_* env configuration
//	internal/decode                — demo Anchor account decode (tick/step/min size, user orders)
//	marketmap/oraclemap/accountmap — live caches fed by transport, refreshed by rpcclient
//	dlob                           — the book itself plus its single-writer notifier
//	transport                      — websocket account/slot subscription feed
//	internal/api                   — /l2, /l3, /best, /metrics
//
// Adapted from 0xtitan6-polymarket-mm's cmd/bot/main.go: config load ->
// build engine components -> start background goroutines -> block on
// SIGINT/SIGTERM -> stop in reverse order.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/driftlabs/dlob-go/accountmap"
	"github.com/driftlabs/dlob-go/dlob"
	"github.com/driftlabs/dlob-go/ffi"
	"github.com/driftlabs/dlob-go/internal/api"
	"github.com/driftlabs/dlob-go/internal/config"
	"github.com/driftlabs/dlob-go/internal/decode"
	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/marketmap"
	"github.com/driftlabs/dlob-go/oraclemap"
	"github.com/driftlabs/dlob-go/pkg/types"
	"github.com/driftlabs/dlob-go/rpcclient"
	"github.com/driftlabs/dlob-go/transport"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("DLOB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Logging))

	programID, err := solanago.PublicKeyFromBase58(cfg.RPC.ProgramID)
	if err != nil {
		logger.Error("invalid rpc.program_id", "error", err)
		os.Exit(1)
	}

	collector := metrics.GetCollector()
	rpc := rpcclient.New(cfg.RPC.HTTPEndpoint, cfg.RPC.Commitment)
	feed := transport.NewWSFeed(cfg.RPC.WSEndpoint, cfg.RPC.Commitment, logger)

	marketIds := marketIdsFromConfig(cfg.Markets)
	book := dlob.New(collector)
	for _, id := range marketIds {
		book.AddMarket(id, 1) // tick size stays 1: nothing updates it from the market account afterwards
	}

	mm := marketmap.New(decode.Market, feed, collector, logger)
	om := oraclemap.New(oracleBindings(cfg.Markets, marketIds), noopOracleDecoder{}, collector, logger)
	am := accountmap.New(decode.Account, logger)
	resolver := newMarketResolver()

	notifier := dlob.NewNotifier(
		book,
		resolver.resolve,
		oraclePriceOf(om),
		collector,
		logger,
		cfg.Sync.AccountSubBuffer,
	)

	ctx, cancel := context.WithCancel(context.Background())

	if err := mm.Subscribe(ctx, marketIds, pubkeyResolver(cfg.Markets)); err != nil {
		logger.Error("failed to subscribe market map", "error", err)
		cancel()
		os.Exit(1)
	}
	if err := feed.SubscribeSlot(); err != nil {
		logger.Error("failed to subscribe slot feed", "error", err)
		cancel()
		os.Exit(1)
	}

	go notifier.Run(ctx)
	go func() {
		if err := feed.Run(ctx); err != nil {
			logger.Error("transport feed stopped", "error", err)
		}
	}()
	go func() {
		for s := range feed.SlotUpdates() {
			notifier.SubmitSlotUpdate(dlob.SlotUpdate{Slot: uint64(s)})
		}
	}()
	// A single dispatcher reads every account update off the feed: a
	// channel has exactly one effective reader, so MarketMap and
	// AccountMap cannot each run their own consumer goroutine over the
	// same channel without starving one another. MarketMap.HandleUpdate
	// claims market-account updates; anything left over is tried against
	// AccountMap.
	go func() {
		for upd := range feed.AccountUpdates() {
			if mm.HandleUpdate(upd) {
				continue
			}
			dispatchAccountUpdate(am, notifier, resolver, logger, upd)
		}
	}()

	if _, err := mm.Sync(ctx, rpc, programID, types.MarketTypePerp, decode.PerpMarketDiscriminator[:], pubkeysOf(cfg.Markets.PerpPubkeys)); err != nil {
		logger.Warn("initial perp market sync failed", "error", err)
	}
	if _, err := mm.Sync(ctx, rpc, programID, types.MarketTypeSpot, decode.SpotMarketDiscriminator[:], pubkeysOf(cfg.Markets.SpotPubkeys)); err != nil {
		logger.Warn("initial spot market sync failed", "error", err)
	}
	if err := om.Sync(ctx, rpc); err != nil {
		logger.Warn("initial oracle sync failed", "error", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Dashboard.Port)
	apiServer := api.NewServer(addr, book, logger)
	if cfg.Dashboard.Enabled {
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("api server started", "addr", addr)
	}

	logger.Info("dlobd started",
		"perp_markets", len(cfg.Markets.PerpIndexes),
		"spot_markets", len(cfg.Markets.SpotIndexes),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if cfg.Dashboard.Enabled {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop api server", "error", err)
		}
	}
	cancel()
	mm.UnsubscribeAll()
	am.UnsubscribeAll()
}

// dispatchAccountUpdate routes a non-market account update to AccountMap,
// decodes it, and submits one notifier update per market the user's
// orders touch (a user may hold orders in several markets at once; the
// notifier's marketOf callback only resolves one market per call, so the
// split has to happen here — see dlob.NewNotifier's doc comment).
func dispatchAccountUpdate(am *accountmap.AccountMap, notifier *dlob.Notifier, resolver *marketResolver, logger *slog.Logger, upd transport.AccountUpdate) {
	user := upd.Pubkey
	if !am.IsSubscribed(user) {
		return
	}
	old, cur, ok, err := am.Apply(user, upd.Data, upd.Slot)
	if err != nil {
		logger.Warn("dropping account update", "user", user, "error", err)
		return
	}
	if !ok {
		return
	}

	oldByMarket := groupByMarket(old)
	curByMarket := groupByMarket(cur)
	seen := make(map[types.MarketId]bool, len(oldByMarket)+len(curByMarket))
	for id := range oldByMarket {
		seen[id] = true
	}
	for id := range curByMarket {
		seen[id] = true
	}
	for id := range seen {
		resolver.record(user, id)
		notifier.SubmitAccountUpdate(dlob.AccountUpdate{
			User: user,
			Old:  oldByMarket[id],
			Cur:  curByMarket[id],
			Slot: upd.Slot,
		})
	}
}

func groupByMarket(orders []types.Order) map[types.MarketId][]types.Order {
	out := make(map[types.MarketId][]types.Order)
	for _, o := range orders {
		id := o.MarketId()
		out[id] = append(out[id], o)
	}
	return out
}

// marketResolver remembers, per user, the market their most recently
// submitted account update belonged to, satisfying the notifier's
// marketOf(user) callback for that update.
type marketResolver struct {
	mu   sync.Mutex
	last map[types.UserPubkey]types.MarketId
}

func newMarketResolver() *marketResolver {
	return &marketResolver{last: make(map[types.UserPubkey]types.MarketId)}
}

func (r *marketResolver) resolve(user types.UserPubkey) (types.MarketId, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.last[user]
	return id, ok
}

func (r *marketResolver) record(user types.UserPubkey, id types.MarketId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[user] = id
}

func newLogHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func marketIdsFromConfig(cfg config.MarketsConfig) []types.MarketId {
	ids := make([]types.MarketId, 0, len(cfg.PerpIndexes)+len(cfg.SpotIndexes))
	for _, idx := range cfg.PerpIndexes {
		ids = append(ids, types.MarketId{Index: idx, Kind: types.MarketTypePerp})
	}
	for _, idx := range cfg.SpotIndexes {
		ids = append(ids, types.MarketId{Index: idx, Kind: types.MarketTypeSpot})
	}
	return ids
}

func pubkeyResolver(cfg config.MarketsConfig) func(types.MarketId) (solanago.PublicKey, error) {
	return func(id types.MarketId) (solanago.PublicKey, error) {
		table := cfg.PerpPubkeys
		if id.Kind == types.MarketTypeSpot {
			table = cfg.SpotPubkeys
		}
		s, ok := table[id.Index]
		if !ok {
			return solanago.PublicKey{}, fmt.Errorf("no configured pubkey for market index %d kind %s", id.Index, id.Kind)
		}
		return solanago.PublicKeyFromBase58(s)
	}
}

func pubkeysOf(table map[uint16]string) []string {
	out := make([]string, 0, len(table))
	for _, s := range table {
		out = append(out, s)
	}
	return out
}

// marketIdKey renders id the same way the config's markets section keys its
// oracle_pubkeys/oracle_sources maps: "<kind>-<index>" (e.g. "perp-0").
func marketIdKey(id types.MarketId) string {
	return fmt.Sprintf("%s-%d", id.Kind, id.Index)
}

func oracleBindings(cfg config.MarketsConfig, ids []types.MarketId) map[types.MarketId]struct {
	Pubkey solanago.PublicKey
	Source ffi.OracleSource
} {
	out := make(map[types.MarketId]struct {
		Pubkey solanago.PublicKey
		Source ffi.OracleSource
	})
	for _, id := range ids {
		key := marketIdKey(id)
		pkStr, ok := cfg.OraclePubkeys[key]
		if !ok {
			continue
		}
		pk, err := solanago.PublicKeyFromBase58(pkStr)
		if err != nil {
			continue
		}
		out[id] = struct {
			Pubkey solanago.PublicKey
			Source ffi.OracleSource
		}{Pubkey: pk, Source: ffi.OracleSource(cfg.OracleSources[key])}
	}
	return out
}

func oraclePriceOf(om *oraclemap.OracleMap) func(types.MarketId) uint64 {
	return func(id types.MarketId) uint64 {
		entry, ok := om.Get(id)
		if !ok || entry.Price.Price < 0 {
			return 0
		}
		return uint64(entry.Price.Price)
	}
}

// noopOracleDecoder is the demo decode path when no real FFI binding is
// configured: it reports every oracle account as undecodable rather than
// fabricating a price. Swap in a real ffi.OracleDecoder for production use.
type noopOracleDecoder struct{}

func (noopOracleDecoder) DecodeOracle(ctx context.Context, source ffi.OracleSource, account ffi.AccountInfo) (ffi.OraclePriceData, error) {
	return ffi.OraclePriceData{}, fmt.Errorf("oracle decode: no FFI binding configured for source %d", source)
}
