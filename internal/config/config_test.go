package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
rpc:
  http_endpoint: "https://api.mainnet-beta.solana.com"
  ws_endpoint: "wss://api.mainnet-beta.solana.com"
  commitment: "confirmed"
  program_id: "dRiFtyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH"
sync:
  account_sub_buffer: 1024
  full_sync_interval: 30s
  reconnect_backoff: 1s
  max_reconnect_backoff: 30s
markets:
  perp_indexes: [0, 1, 2]
logging:
  level: "info"
  format: "json"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPC.Commitment != "confirmed" {
		t.Errorf("Commitment = %q, want confirmed", cfg.RPC.Commitment)
	}
	if len(cfg.Markets.PerpIndexes) != 3 {
		t.Errorf("PerpIndexes = %v, want 3 entries", cfg.Markets.PerpIndexes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadEnvOverridesToken(t *testing.T) {
	path := writeConfig(t, validYAML)
	t.Setenv("DLOB_RPC_TOKEN", "secret-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPC.Token != "secret-token" {
		t.Errorf("Token = %q, want secret-token", cfg.RPC.Token)
	}
}

func TestValidateRejectsMissingEndpoint(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		RPC:     RPCConfig{WSEndpoint: "wss://x", Commitment: "confirmed", ProgramID: "prog"},
		Sync:    SyncConfig{AccountSubBuffer: 1, FullSyncInterval: 1, ReconnectBackoff: 1, MaxReconnectBackoff: 1},
		Markets: MarketsConfig{PerpIndexes: []uint16{0}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing rpc.http_endpoint")
	}
}

func TestValidateRejectsBadCommitment(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		RPC:     RPCConfig{HTTPEndpoint: "https://x", WSEndpoint: "wss://x", Commitment: "fast", ProgramID: "prog"},
		Sync:    SyncConfig{AccountSubBuffer: 1, FullSyncInterval: 1, ReconnectBackoff: 1, MaxReconnectBackoff: 1},
		Markets: MarketsConfig{PerpIndexes: []uint16{0}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid commitment level")
	}
}

func TestValidateRejectsMissingProgramID(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		RPC:     RPCConfig{HTTPEndpoint: "https://x", WSEndpoint: "wss://x", Commitment: "confirmed"},
		Sync:    SyncConfig{AccountSubBuffer: 1, FullSyncInterval: 1, ReconnectBackoff: 1, MaxReconnectBackoff: 1},
		Markets: MarketsConfig{PerpIndexes: []uint16{0}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing rpc.program_id")
	}
}

func TestValidateRejectsNoMarkets(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		RPC:  RPCConfig{HTTPEndpoint: "https://x", WSEndpoint: "wss://x", Commitment: "confirmed", ProgramID: "prog"},
		Sync: SyncConfig{AccountSubBuffer: 1, FullSyncInterval: 1, ReconnectBackoff: 1, MaxReconnectBackoff: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when no perp or spot indexes are configured")
	}
}
