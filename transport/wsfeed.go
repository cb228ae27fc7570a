package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	eventBufferSize  = 1024
)

// WSFeed manages a single Solana account/slot pubsub WebSocket connection.
// It tracks every pubkey subscribed so a reconnect re-subscribes all of
// them, the same shape as the teacher's market/user feeds re-subscribing
// asset IDs and condition IDs on reconnect.
type WSFeed struct {
	url        string
	commitment string

	connMu sync.Mutex
	conn   *websocket.Conn

	subMu         sync.RWMutex
	accounts      map[string]solana.PublicKey // pubkey string -> pubkey
	slotSub       bool
	pendingByReqID map[uint64]string // request id -> pubkey string, awaiting its subscribe ack
	subscriptions  map[uint64]string // server subscription id -> pubkey string

	accountCh chan AccountUpdate
	slotCh    chan SlotUpdate

	logger *slog.Logger
	nextID uint64
}

// NewWSFeed returns a feed pointed at a Solana pubsub WebSocket endpoint.
func NewWSFeed(wsURL, commitment string, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		url:            wsURL,
		commitment:     commitment,
		accounts:       make(map[string]solana.PublicKey),
		pendingByReqID: make(map[uint64]string),
		subscriptions:  make(map[uint64]string),
		accountCh:      make(chan AccountUpdate, eventBufferSize),
		slotCh:         make(chan SlotUpdate, eventBufferSize),
		logger:         logger.With("component", "ws_feed"),
		nextID:         1,
	}
}

// AccountUpdates returns a read-only channel of account notification events.
func (f *WSFeed) AccountUpdates() <-chan AccountUpdate { return f.accountCh }

// SlotUpdates returns a read-only channel of slot notification events.
func (f *WSFeed) SlotUpdates() <-chan SlotUpdate { return f.slotCh }

// SubscribeAccount registers pubkey for account-change notifications. If
// the connection is up the subscription is sent immediately; otherwise it
// is sent on the next successful connect.
func (f *WSFeed) SubscribeAccount(pubkey solana.PublicKey) error {
	f.subMu.Lock()
	f.accounts[pubkey.String()] = pubkey
	f.subMu.Unlock()
	return f.writeAccountSubscribe(pubkey)
}

// UnsubscribeAccount stops tracking pubkey. The server-side subscription is
// left to lapse on the next reconnect rather than sending an explicit
// accountUnsubscribe, matching MarketMap.UnsubscribeAll's all-or-nothing
// teardown (a fresh connection only re-subscribes what's still tracked).
func (f *WSFeed) UnsubscribeAccount(pubkey solana.PublicKey) {
	f.subMu.Lock()
	delete(f.accounts, pubkey.String())
	f.subMu.Unlock()
}

// SubscribeSlot enables slot notifications.
func (f *WSFeed) SubscribeSlot() error {
	f.subMu.Lock()
	f.slotSub = true
	f.subMu.Unlock()
	return f.writeJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      f.takeID(),
		"method":  "slotSubscribe",
		"params":  []any{},
	})
}

// Run connects and maintains the WebSocket connection with exponential
// backoff (1s, 2s, 4s, ..., capped at 30s), re-subscribing everything
// tracked in f.accounts/f.slotSub on every reconnect. Blocks until ctx is
// cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *WSFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	f.subMu.Lock()
	f.pendingByReqID = make(map[uint64]string)
	f.subscriptions = make(map[uint64]string)
	f.subMu.Unlock()

	if err := f.resubscribeAll(); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	f.logger.Info("websocket connected", "url", f.url)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatchMessage(msg)
	}
}

func (f *WSFeed) resubscribeAll() error {
	f.subMu.RLock()
	pubkeys := make([]solana.PublicKey, 0, len(f.accounts))
	for _, pk := range f.accounts {
		pubkeys = append(pubkeys, pk)
	}
	slotSub := f.slotSub
	f.subMu.RUnlock()

	for _, pk := range pubkeys {
		if err := f.writeAccountSubscribe(pk); err != nil {
			return err
		}
	}
	if slotSub {
		if err := f.writeJSON(map[string]any{
			"jsonrpc": "2.0",
			"id":      f.takeID(),
			"method":  "slotSubscribe",
			"params":  []any{},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (f *WSFeed) writeAccountSubscribe(pubkey solana.PublicKey) error {
	id := f.takeID()
	f.subMu.Lock()
	f.pendingByReqID[id] = pubkey.String()
	f.subMu.Unlock()

	return f.writeJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "accountSubscribe",
		"params": []any{
			pubkey.String(),
			map[string]any{"encoding": "base64", "commitment": f.commitment},
		},
	})
}

func (f *WSFeed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return nil // buffered: the next connect's resubscribeAll will send it
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *WSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

func (f *WSFeed) takeID() uint64 {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	f.nextID++
	return f.nextID
}

type subscribeAck struct {
	ID     uint64 `json:"id"`
	Result uint64 `json:"result"`
}

type accountNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Lamports   uint64    `json:"lamports"`
				Owner      string    `json:"owner"`
				Data       [2]string `json:"data"`
				Executable bool      `json:"executable"`
				RentEpoch  uint64    `json:"rentEpoch"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

type slotNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Slot uint64 `json:"slot"`
		} `json:"result"`
	} `json:"params"`
}

func (f *WSFeed) dispatchMessage(data []byte) {
	var envelope struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	switch envelope.Method {
	case "accountNotification":
		f.handleAccountNotification(data)
	case "slotNotification":
		var n slotNotification
		if err := json.Unmarshal(data, &n); err != nil {
			f.logger.Warn("malformed slotNotification", "error", err)
			return
		}
		select {
		case f.slotCh <- SlotUpdate(n.Params.Result.Slot):
		default:
			f.logger.Warn("dropping slot update, channel full")
		}
	case "":
		f.handleSubscribeAck(data)
	}
}

func (f *WSFeed) handleSubscribeAck(data []byte) {
	var ack subscribeAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return
	}
	f.subMu.Lock()
	defer f.subMu.Unlock()
	if pubkey, ok := f.pendingByReqID[ack.ID]; ok {
		f.subscriptions[ack.Result] = pubkey
		delete(f.pendingByReqID, ack.ID)
	}
}

func (f *WSFeed) handleAccountNotification(data []byte) {
	var n accountNotification
	if err := json.Unmarshal(data, &n); err != nil {
		f.logger.Warn("malformed accountNotification", "error", err)
		return
	}

	owner, err := solana.PublicKeyFromBase58(n.Params.Result.Value.Owner)
	if err != nil {
		f.logger.Warn("malformed owner in accountNotification", "error", err)
		return
	}
	if n.Params.Result.Value.Data[1] != "base64" {
		f.logger.Warn("unexpected account encoding", "encoding", n.Params.Result.Value.Data[1])
		return
	}
	raw, err := base64.StdEncoding.DecodeString(n.Params.Result.Value.Data[0])
	if err != nil {
		f.logger.Warn("malformed account data in accountNotification", "error", err)
		return
	}

	update := AccountUpdate{
		Owner:      owner,
		Lamports:   n.Params.Result.Value.Lamports,
		Data:       raw,
		Executable: n.Params.Result.Value.Executable,
		RentEpoch:  n.Params.Result.Value.RentEpoch,
		Slot:       n.Params.Result.Context.Slot,
	}

	f.subMu.RLock()
	if pk, ok := f.subscriptions[n.Params.Subscription]; ok {
		if parsed, err := solana.PublicKeyFromBase58(pk); err == nil {
			update.Pubkey = parsed
		}
	}
	f.subMu.RUnlock()

	select {
	case f.accountCh <- update:
	default:
		f.logger.Warn("dropping account update, channel full", "pubkey", update.Pubkey.String())
	}
}
