package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rwapool.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[assets]
Stable = "0x0000000000000000000000000000000000011111"

[[feeds]]
Base = "0x0000000000000000000000000000000000022222"
Quote = "0x0000000000000000000000000000000000011111"
Price = "100.0"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.Pool.SwapBufferHours != 48 || cfg.Pool.MaturityDays != 180 {
		t.Fatalf("window defaults = %d/%d", cfg.Pool.SwapBufferHours, cfg.Pool.MaturityDays)
	}
	if cfg.Pool.Leverage != 50 || cfg.Pool.SpreadBps != 9950 {
		t.Fatalf("pool defaults = %d/%d", cfg.Pool.Leverage, cfg.Pool.SpreadBps)
	}
	if len(cfg.Feeds) != 1 {
		t.Fatalf("feeds = %d, want 1", len(cfg.Feeds))
	}
	if cfg.Feeds[0].Decimals != 18 || cfg.Feeds[0].MaxAgeSeconds != 86_400 {
		t.Fatalf("feed defaults = %d/%d", cfg.Feeds[0].Decimals, cfg.Feeds[0].MaxAgeSeconds)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
ListenAddress = ":9000"
DataDir = "/var/lib/rwapool"
OTLPEndpoint = "collector:4318"
OTLPInsecure = true

[pool]
MinOrderSizeWei = "1000000000000000000"
SwapBufferHours = 24
MaturityDays = 90
Leverage = 20
SpreadBps = 9000
Borrowers = ["0x00000000000000000000000000000000000b0001"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" || cfg.DataDir != "/var/lib/rwapool" {
		t.Fatalf("overrides lost: %q %q", cfg.ListenAddress, cfg.DataDir)
	}
	if cfg.OTLPEndpoint != "collector:4318" || !cfg.OTLPInsecure {
		t.Fatalf("otlp overrides lost: %q %v", cfg.OTLPEndpoint, cfg.OTLPInsecure)
	}
	if cfg.Pool.SwapBufferHours != 24 || cfg.Pool.MaturityDays != 90 {
		t.Fatalf("window overrides lost: %d/%d", cfg.Pool.SwapBufferHours, cfg.Pool.MaturityDays)
	}
	if cfg.Pool.Leverage != 20 || cfg.Pool.SpreadBps != 9000 {
		t.Fatalf("pool overrides lost: %d/%d", cfg.Pool.Leverage, cfg.Pool.SpreadBps)
	}
	if len(cfg.Pool.Borrowers) != 1 {
		t.Fatalf("borrowers = %v", cfg.Pool.Borrowers)
	}
	if cfg.Pool.MinOrderSizeWei != "1000000000000000000" {
		t.Fatalf("min order = %q", cfg.Pool.MinOrderSizeWei)
	}
}
