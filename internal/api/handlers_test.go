package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftlabs/dlob-go/dlob"
	"github.com/driftlabs/dlob-go/pkg/types"
)

type fakeBook struct {
	bid, ask    uint64
	bidErr      error
	askErr      error
	l2Bids      []dlob.L2Level
	l2Asks      []dlob.L2Level
	l2Err       error
	l3Err       error
	gotL2Depth  int
	gotL3Depth  int
}

func (f *fakeBook) GetBestBid(types.MarketId) (dlob.BestLevel, error) {
	return dlob.BestLevel{Price: f.bid}, f.bidErr
}
func (f *fakeBook) GetBestAsk(types.MarketId) (dlob.BestLevel, error) {
	return dlob.BestLevel{Price: f.ask}, f.askErr
}
func (f *fakeBook) GetL2(id types.MarketId, depth int) ([]dlob.L2Level, []dlob.L2Level, error) {
	f.gotL2Depth = depth
	return f.l2Bids, f.l2Asks, f.l2Err
}
func (f *fakeBook) GetL3(id types.MarketId, depth int) ([]dlob.L3Order, []dlob.L3Order, error) {
	f.gotL3Depth = depth
	return nil, nil, f.l3Err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestHandleBestReturnsBothSides(t *testing.T) {
	t.Parallel()
	h := NewHandlers(&fakeBook{bid: 100, ask: 105}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/best?kind=perp&index=0", nil)
	rec := httptest.NewRecorder()
	h.HandleBest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]*dlob.BestLevel
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["bid"] == nil || body["bid"].Price != 100 {
		t.Errorf("bid = %v, want 100", body["bid"])
	}
	if body["ask"] == nil || body["ask"].Price != 105 {
		t.Errorf("ask = %v, want 105", body["ask"])
	}
}

func TestHandleBestTreatsNotFoundAsEmptySide(t *testing.T) {
	t.Parallel()
	book := &fakeBook{bid: 100, askErr: &dlob.Error{Kind: dlob.ErrNotFound}}
	h := NewHandlers(book, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/best?kind=perp&index=0", nil)
	rec := httptest.NewRecorder()
	h.HandleBest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (empty ask side is not an error)", rec.Code)
	}
	var body map[string]*dlob.BestLevel
	json.NewDecoder(rec.Body).Decode(&body)
	if body["ask"] != nil {
		t.Errorf("ask = %v, want nil", body["ask"])
	}
}

func TestHandleBestRejectsMissingIndex(t *testing.T) {
	t.Parallel()
	h := NewHandlers(&fakeBook{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/best?kind=perp", nil)
	rec := httptest.NewRecorder()
	h.HandleBest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBestReturns404OnUnsubscribedMarket(t *testing.T) {
	t.Parallel()
	unsub := &dlob.Error{Kind: dlob.ErrUnsubscribedAccess}
	h := NewHandlers(&fakeBook{bidErr: unsub, askErr: unsub}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/best?kind=perp&index=9", nil)
	rec := httptest.NewRecorder()
	h.HandleBest(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleL2UsesDefaultDepthWhenUnset(t *testing.T) {
	t.Parallel()
	book := &fakeBook{l2Bids: []dlob.L2Level{{Price: 1, Amount: 2}}}
	h := NewHandlers(book, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/l2?kind=spot&index=0", nil)
	rec := httptest.NewRecorder()
	h.HandleL2(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if book.gotL2Depth != 20 {
		t.Errorf("depth = %d, want default 20", book.gotL2Depth)
	}
}

func TestHandleL2RejectsUnknownMarketKind(t *testing.T) {
	t.Parallel()
	h := NewHandlers(&fakeBook{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/l2?kind=future&index=0", nil)
	rec := httptest.NewRecorder()
	h.HandleL2(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
