// Package transport implements the Solana account/slot WebSocket feeds
// that drive MarketMap, OracleMap, and the order-delta notifier, adapted
// from the teacher's Polymarket WSFeed: auto-reconnect with exponential
// backoff, per-subscription re-subscribe on reconnect, and typed event
// channels consumers drain independently of the connection lifecycle.
package transport

import "github.com/gagliardetto/solana-go"

// AccountUpdate is one observed account write, delivered by accountSubscribe.
type AccountUpdate struct {
	Pubkey     solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
	RentEpoch  uint64
	Slot       uint64
}

// SlotUpdate is a new slot observed on the cluster, delivered by
// slotSubscribe.
type SlotUpdate uint64
