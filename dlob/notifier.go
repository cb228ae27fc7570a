package dlob

import (
	"context"
	"log/slog"
	"time"

	"github.com/driftlabs/dlob-go/internal/metrics"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// AccountUpdate is one observed change to a user's orders, produced by the
// transport layer and diffed by DiffUser upstream of the notifier.
type AccountUpdate struct {
	User types.UserPubkey
	Old  []types.Order
	Cur  []types.Order
	Slot uint64
}

// SlotUpdate is a new slot observed on the cluster, used to drive periodic
// reclassification.
type SlotUpdate struct {
	Slot uint64
}

// Notifier is the single goroutine that owns every write to a DLOB: it
// drains account and slot updates from buffered channels and applies them
// in order, so the DLOB facade itself never has to synchronize writers
// (spec.md §4.6). Everything else in the engine only ever reads from DLOB
// or sends to Notifier's channels.
type Notifier struct {
	dlob      *DLOB
	marketOf  func(user types.UserPubkey) (types.MarketId, bool)
	oracleOf  func(id types.MarketId) uint64
	collector *metrics.Collector
	logger    *slog.Logger

	accounts chan AccountUpdate
	slots    chan SlotUpdate
}

// NewNotifier returns a Notifier that applies updates to d. marketOf must
// resolve which market a user's order array belongs to (a user may have
// orders across many markets in practice, but the DLOB's per-market
// isolation means the caller is expected to have already split a
// multi-market AccountUpdate into one per market before it reaches here).
// oracleOf returns the current oracle price for a market, used to refresh
// the per-market snapshot on every slot tick.
func NewNotifier(
	d *DLOB,
	marketOf func(types.UserPubkey) (types.MarketId, bool),
	oracleOf func(types.MarketId) uint64,
	collector *metrics.Collector,
	logger *slog.Logger,
	bufferSize int,
) *Notifier {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Notifier{
		dlob:      d,
		marketOf:  marketOf,
		oracleOf:  oracleOf,
		collector: collector,
		logger:    logger,
		accounts:  make(chan AccountUpdate, bufferSize),
		slots:     make(chan SlotUpdate, bufferSize),
	}
}

// SubmitAccountUpdate enqueues an account update for the notifier to
// apply. If the buffer is full the incoming update is dropped and counted
// as a StaleUpdate (spec.md §7); the updates already queued are kept, and
// the transport goroutine that feeds the notifier never blocks.
func (n *Notifier) SubmitAccountUpdate(u AccountUpdate) {
	select {
	case n.accounts <- u:
	default:
		if n.collector != nil {
			n.collector.RecordError(ErrStaleUpdate.String())
		}
		if n.logger != nil {
			n.logger.Warn("dropping account update, notifier queue full", "user", u.User.String())
		}
	}
}

// SubmitSlotUpdate enqueues a slot tick.
func (n *Notifier) SubmitSlotUpdate(u SlotUpdate) {
	select {
	case n.slots <- u:
	default:
		if n.collector != nil {
			n.collector.RecordError(ErrStaleUpdate.String())
		}
	}
}

// Run drains both channels until ctx is canceled. It is meant to be
// started exactly once, in its own goroutine, by the composition root.
func (n *Notifier) Run(ctx context.Context) {
	reclassifyTicker := time.NewTicker(time.Second)
	defer reclassifyTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case u := <-n.accounts:
			n.applyAccountUpdate(u)

		case s := <-n.slots:
			n.applySlotUpdate(s)

		case <-reclassifyTicker.C:
			n.reclassifyAll()
		}

		if n.collector != nil {
			n.collector.SetQueueDepth("account", len(n.accounts))
			n.collector.SetQueueDepth("slot", len(n.slots))
		}
	}
}

func (n *Notifier) applyAccountUpdate(u AccountUpdate) {
	id, ok := n.marketOf(u.User)
	if !ok {
		if n.collector != nil {
			n.collector.RecordError(ErrUnsubscribedAccess.String())
		}
		return
	}

	timer := metrics.NewTimer()
	deltas := DiffUser(u.User, u.Old, u.Cur, u.Slot)
	for _, delta := range deltas {
		if err := n.dlob.OnEvent(id, delta); err != nil && n.logger != nil {
			n.logger.Warn("dropping order delta", "error", err, "user", u.User.String())
		}
	}
	if n.collector != nil {
		n.collector.RecordApply(marketKey(id), "account_update", timer.ElapsedMs())
	}
}

func (n *Notifier) applySlotUpdate(s SlotUpdate) {
	for _, id := range n.dlob.exchange.KnownMarkets() {
		n.dlob.SetSlotAndOracle(id, s.Slot, n.oracleOf(id))
	}
}

func (n *Notifier) reclassifyAll() {
	for _, id := range n.dlob.exchange.KnownMarkets() {
		m, snap, ok := n.dlob.read(id)
		if !ok {
			continue
		}
		ReclassifyTakingLimit(marketKey(id), m, snap.Slot, n.collector)
	}
}
