// Package config defines all configuration for the dlobd engine process.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via DLOB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	RPC       RPCConfig       `mapstructure:"rpc"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Markets   MarketsConfig   `mapstructure:"markets"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// RPCConfig holds the Solana RPC and websocket endpoints used to subscribe
// to account and slot updates. Token is an optional bearer/API-key value
// for providers (Helius, Triton, QuickNode) that gate the websocket
// endpoint; it is loaded (and overridable from the environment) but
// neither rpcclient nor transport.WSFeed sends it. It is never logged.
type RPCConfig struct {
	HTTPEndpoint string `mapstructure:"http_endpoint"`
	WSEndpoint   string `mapstructure:"ws_endpoint"`
	Commitment   string `mapstructure:"commitment"`
	Token        string `mapstructure:"token"`
	// ProgramID is the on-chain program whose market/user accounts this
	// engine tracks, used as the getProgramAccounts filter in MarketMap's
	// first sync tier.
	ProgramID string `mapstructure:"program_id"`
}

// SyncConfig tunes the reconnect/fallback and periodic sync behavior
// described in spec.md §4.7 (MarketMap/OracleMap/AccountMap three-tier
// and two-tier fallback).
//
//   - AccountSubBuffer: per-subscription channel buffer size; a full
//     buffer is dropped with a StaleUpdate error rather than blocking the
//     transport goroutine.
//   - FullSyncInterval: interval for a periodic full gPA/multi-get resync.
//     Validate requires it to be positive, but nothing else reads it:
//     cmd/dlobd syncs once at startup and runs no periodic resync.
//   - ReconnectBackoff/MaxReconnectBackoff: exponential backoff bounds for
//     websocket reconnects. Validate checks them, but transport.WSFeed uses
//     its own fixed 1s-to-30s backoff and does not read these values.
type SyncConfig struct {
	AccountSubBuffer    int           `mapstructure:"account_sub_buffer"`
	FullSyncInterval    time.Duration `mapstructure:"full_sync_interval"`
	ReconnectBackoff    time.Duration `mapstructure:"reconnect_backoff"`
	MaxReconnectBackoff time.Duration `mapstructure:"max_reconnect_backoff"`
}

// MarketsConfig controls which markets the engine subscribes to at
// startup, along with the account addresses needed to do so before the
// first sync has run.
type MarketsConfig struct {
	PerpIndexes  []uint16          `mapstructure:"perp_indexes"`
	SpotIndexes  []uint16          `mapstructure:"spot_indexes"`
	PerpPubkeys  map[uint16]string `mapstructure:"perp_pubkeys"`
	SpotPubkeys  map[uint16]string `mapstructure:"spot_pubkeys"`
	OraclePubkeys map[string]string `mapstructure:"oracle_pubkeys"` // "perp-0" -> pubkey
	OracleSources map[string]uint8  `mapstructure:"oracle_sources"` // "perp-0" -> ffi.OracleSource
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the read-only HTTP query surface (internal/api).
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: DLOB_RPC_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("DLOB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if token := os.Getenv("DLOB_RPC_TOKEN"); token != "" {
		cfg.RPC.Token = token
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.RPC.HTTPEndpoint == "" {
		return fmt.Errorf("rpc.http_endpoint is required")
	}
	if c.RPC.WSEndpoint == "" {
		return fmt.Errorf("rpc.ws_endpoint is required")
	}
	if c.RPC.ProgramID == "" {
		return fmt.Errorf("rpc.program_id is required")
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment must be one of: processed, confirmed, finalized")
	}
	if c.Sync.AccountSubBuffer <= 0 {
		return fmt.Errorf("sync.account_sub_buffer must be > 0")
	}
	if c.Sync.FullSyncInterval <= 0 {
		return fmt.Errorf("sync.full_sync_interval must be > 0")
	}
	if c.Sync.ReconnectBackoff <= 0 {
		return fmt.Errorf("sync.reconnect_backoff must be > 0")
	}
	if c.Sync.MaxReconnectBackoff < c.Sync.ReconnectBackoff {
		return fmt.Errorf("sync.max_reconnect_backoff must be >= sync.reconnect_backoff")
	}
	if len(c.Markets.PerpIndexes) == 0 && len(c.Markets.SpotIndexes) == 0 {
		return fmt.Errorf("markets: at least one perp or spot index is required")
	}
	return nil
}
