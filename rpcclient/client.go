// Package rpcclient implements a minimal Solana JSON-RPC client used by
// MarketMap and OracleMap's sync fallback tiers (getProgramAccounts,
// getMultipleAccounts, getAccountInfo, getSlot). It deliberately exposes
// only the handful of methods the sync paths need rather than the full
// RPC surface.
package rpcclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	solanago "github.com/gagliardetto/solana-go"
)

// maxMultipleAccounts is the chunk size getMultipleAccounts is split into,
// per spec §4.8 tier 2 ("chunks of <=64").
const maxMultipleAccounts = 64

// Account is a decoded account returned by the RPC endpoint: pubkey, owner,
// base64-decoded data, and lamports. The slot the read was observed at is
// returned separately by each Get* method.
type Account struct {
	Pubkey   solanago.PublicKey
	Owner    solanago.PublicKey
	Data     []byte
	Lamports uint64
}

// Client is a thin JSON-RPC 2.0 client over a resty HTTP client, mirroring
// the retry/timeout configuration the teacher's exchange.Client uses for
// its REST surface.
type Client struct {
	http       *resty.Client
	commitment string
}

// New returns a Client pointed at endpoint with the given commitment level
// ("processed", "confirmed", or "finalized").
func New(endpoint, commitment string) *Client {
	http := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{http: http, commitment: commitment}
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcEnvelope[T any] struct {
	Result T         `json:"result"`
	Error  *rpcError `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(out).
		Post("/")
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode(), resp.String())
	}
	return nil
}

// GetSlot returns the current slot at the client's configured commitment.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var env rpcEnvelope[uint64]
	params := []any{map[string]any{"commitment": c.commitment}}
	if err := c.call(ctx, "getSlot", params, &env); err != nil {
		return 0, err
	}
	if env.Error != nil {
		return 0, env.Error
	}
	return env.Result, nil
}

type accountValue struct {
	Data       [2]string `json:"data"`
	Owner      string    `json:"owner"`
	Lamports   uint64    `json:"lamports"`
	Executable bool      `json:"executable"`
}

type contextSlot struct {
	Slot uint64 `json:"slot"`
}

func decodeAccountValue(v accountValue) (Account, error) {
	owner, err := solanago.PublicKeyFromBase58(v.Owner)
	if err != nil {
		return Account{}, fmt.Errorf("decode owner: %w", err)
	}
	if v.Data[1] != "base64" {
		return Account{}, fmt.Errorf("unsupported account encoding %q", v.Data[1])
	}
	data, err := base64.StdEncoding.DecodeString(v.Data[0])
	if err != nil {
		return Account{}, fmt.Errorf("decode data: %w", err)
	}
	return Account{Owner: owner, Data: data, Lamports: v.Lamports}, nil
}

// GetAccountInfo fetches a single account, tier 3 of MarketMap/OracleMap
// sync's fallback ladder.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solanago.PublicKey) (Account, uint64, error) {
	var env rpcEnvelope[struct {
		Context contextSlot   `json:"context"`
		Value   *accountValue `json:"value"`
	}]
	params := []any{pubkey.String(), map[string]any{"encoding": "base64", "commitment": c.commitment}}
	if err := c.call(ctx, "getAccountInfo", params, &env); err != nil {
		return Account{}, 0, err
	}
	if env.Error != nil {
		return Account{}, 0, env.Error
	}
	if env.Result.Value == nil {
		return Account{}, env.Result.Context.Slot, fmt.Errorf("account %s not found", pubkey)
	}
	acc, err := decodeAccountValue(*env.Result.Value)
	if err != nil {
		return Account{}, 0, err
	}
	acc.Pubkey = pubkey
	return acc, env.Result.Context.Slot, nil
}

// GetMultipleAccounts fetches pubkeys in chunks of at most
// maxMultipleAccounts, tier 2 of the sync fallback ladder. Missing
// accounts are omitted from the result rather than erroring.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solanago.PublicKey) ([]Account, uint64, error) {
	var out []Account
	var latestSlot uint64

	for start := 0; start < len(pubkeys); start += maxMultipleAccounts {
		end := start + maxMultipleAccounts
		if end > len(pubkeys) {
			end = len(pubkeys)
		}
		chunk := pubkeys[start:end]

		keys := make([]string, len(chunk))
		for i, k := range chunk {
			keys[i] = k.String()
		}

		var env rpcEnvelope[struct {
			Context contextSlot     `json:"context"`
			Value   []*accountValue `json:"value"`
		}]
		params := []any{keys, map[string]any{"encoding": "base64", "commitment": c.commitment}}
		if err := c.call(ctx, "getMultipleAccounts", params, &env); err != nil {
			return nil, 0, err
		}
		if env.Error != nil {
			return nil, 0, env.Error
		}
		if env.Result.Context.Slot > latestSlot {
			latestSlot = env.Result.Context.Slot
		}
		for i, v := range env.Result.Value {
			if v == nil {
				continue
			}
			acc, err := decodeAccountValue(*v)
			if err != nil {
				return nil, 0, err
			}
			acc.Pubkey = chunk[i]
			out = append(out, acc)
		}
	}
	return out, latestSlot, nil
}

// ProgramAccountsFilter narrows a getProgramAccounts call, typically to a
// fixed-size memcmp on the account discriminator.
type ProgramAccountsFilter struct {
	DataSize uint64
	Offset   uint64
	Bytes    []byte // base58-encoded by the caller is not required; we encode here
}

// GetProgramAccounts fetches every account owned by programID matching
// filters, tier 1 of the sync fallback ladder.
func (c *Client) GetProgramAccounts(ctx context.Context, programID solanago.PublicKey, filters []ProgramAccountsFilter) ([]Account, uint64, error) {
	var rpcFilters []any
	for _, f := range filters {
		if f.DataSize > 0 {
			rpcFilters = append(rpcFilters, map[string]any{"dataSize": f.DataSize})
		}
		if len(f.Bytes) > 0 {
			rpcFilters = append(rpcFilters, map[string]any{
				"memcmp": map[string]any{
					"offset": f.Offset,
					"bytes":  base64.StdEncoding.EncodeToString(f.Bytes),
					"encoding": "base64",
				},
			})
		}
	}

	var env rpcEnvelope[struct {
		Context contextSlot `json:"context"`
		Value   []struct {
			Pubkey  string       `json:"pubkey"`
			Account accountValue `json:"account"`
		} `json:"value"`
	}]
	opts := map[string]any{
		"encoding":   "base64",
		"commitment": c.commitment,
		"withContext": true,
	}
	if len(rpcFilters) > 0 {
		opts["filters"] = rpcFilters
	}
	params := []any{programID.String(), opts}
	if err := c.call(ctx, "getProgramAccounts", params, &env); err != nil {
		return nil, 0, err
	}
	if env.Error != nil {
		return nil, 0, env.Error
	}

	out := make([]Account, 0, len(env.Result.Value))
	for _, entry := range env.Result.Value {
		pubkey, err := solanago.PublicKeyFromBase58(entry.Pubkey)
		if err != nil {
			return nil, 0, fmt.Errorf("decode pubkey: %w", err)
		}
		acc, err := decodeAccountValue(entry.Account)
		if err != nil {
			return nil, 0, err
		}
		acc.Pubkey = pubkey
		out = append(out, acc)
	}
	return out, env.Result.Context.Slot, nil
}
