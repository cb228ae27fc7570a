package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/driftlabs/dlob-go/dlob"
	"github.com/driftlabs/dlob-go/pkg/types"
)

// Handlers holds the dependencies every HTTP handler needs.
type Handlers struct {
	book   BookReader
	logger *slog.Logger
}

// NewHandlers wires up the handler set for book.
func NewHandlers(book BookReader, logger *slog.Logger) *Handlers {
	return &Handlers{book: book, logger: logger.With("component", "api-handlers")}
}

// HandleHealth returns a constant ok response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func parseMarketId(r *http.Request) (types.MarketId, error) {
	q := r.URL.Query()
	kind := types.MarketTypePerp
	switch q.Get("kind") {
	case "", "perp":
		kind = types.MarketTypePerp
	case "spot":
		kind = types.MarketTypeSpot
	default:
		return types.MarketId{}, errors.New("kind must be \"perp\" or \"spot\"")
	}

	indexStr := q.Get("index")
	if indexStr == "" {
		return types.MarketId{}, errors.New("missing required query parameter: index")
	}
	index, err := strconv.ParseUint(indexStr, 10, 16)
	if err != nil {
		return types.MarketId{}, errors.New("index must be a non-negative integer")
	}
	return types.MarketId{Index: uint16(index), Kind: kind}, nil
}

func parseDepth(r *http.Request, def int) int {
	depthStr := r.URL.Query().Get("depth")
	if depthStr == "" {
		return def
	}
	depth, err := strconv.Atoi(depthStr)
	if err != nil || depth < 0 {
		return def
	}
	return depth
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// HandleL2 serves aggregated price-level book depth for one market:
// GET /l2?kind=perp&index=0&depth=20
func (h *Handlers) HandleL2(w http.ResponseWriter, r *http.Request) {
	id, err := parseMarketId(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	bids, asks, err := h.book.GetL2(id, parseDepth(r, 20))
	if err != nil {
		h.respondBookError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]dlob.L2Level{"bids": bids, "asks": asks})
}

// HandleL3 serves unaggregated resident orders for one market:
// GET /l3?kind=perp&index=0&depth=50
func (h *Handlers) HandleL3(w http.ResponseWriter, r *http.Request) {
	id, err := parseMarketId(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	bids, asks, err := h.book.GetL3(id, parseDepth(r, 50))
	if err != nil {
		h.respondBookError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]dlob.L3Order{"bids": bids, "asks": asks})
}

// HandleBest serves the best matchable bid/ask for one market:
// GET /best?kind=spot&index=1
func (h *Handlers) HandleBest(w http.ResponseWriter, r *http.Request) {
	id, err := parseMarketId(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := map[string]*dlob.BestLevel{"bid": nil, "ask": nil}
	if bid, err := h.book.GetBestBid(id); err == nil {
		resp["bid"] = &bid
	} else if !isNotFound(err) {
		h.respondBookError(w, err)
		return
	}
	if ask, err := h.book.GetBestAsk(id); err == nil {
		resp["ask"] = &ask
	} else if !isNotFound(err) {
		h.respondBookError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// isNotFound reports whether err is dlob's "no matchable order" error,
// which /best treats as an empty side rather than a request failure.
func isNotFound(err error) bool {
	var dlobErr *dlob.Error
	if errors.As(err, &dlobErr) {
		return dlobErr.Kind == dlob.ErrNotFound
	}
	return false
}

func (h *Handlers) respondBookError(w http.ResponseWriter, err error) {
	var dlobErr *dlob.Error
	if errors.As(err, &dlobErr) && dlobErr.Kind == dlob.ErrUnsubscribedAccess {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	h.logger.Error("book query failed", "error", err)
	h.writeError(w, http.StatusInternalServerError, err)
}
