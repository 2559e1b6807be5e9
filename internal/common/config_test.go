package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.HomeCurrency != "JPY" {
		t.Errorf("home currency = %q, want JPY", cfg.HomeCurrency)
	}
	if cfg.Resolver.BreakerThreshold != 3 {
		t.Errorf("breaker threshold = %d, want 3", cfg.Resolver.BreakerThreshold)
	}
	if got := cfg.Resolver.GetBreakerCooldown(); got != 60*time.Second {
		t.Errorf("breaker cooldown = %v, want 60s", got)
	}
	if got := cfg.Resolver.GetInflightWait(); got != 5*time.Second {
		t.Errorf("inflight wait = %v, want 5s", got)
	}
	if len(cfg.Resolver.TierOrder) != 4 || cfg.Resolver.TierOrder[0] != "nav" {
		t.Errorf("tier order = %v", cfg.Resolver.TierOrder)
	}
	if cfg.Cache.PriorityFetchDays != 365 {
		t.Errorf("priority fetch days = %d", cfg.Cache.PriorityFetchDays)
	}
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
environment = "production"

[server]
port = 9090

[resolver]
tier_order = ["yahoo", "alt"]
breaker_cooldown = "10s"

[cache]
chunk_pause = "0s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHISAN_PORT", "7070")
	t.Setenv("SHISAN_TIER_ORDER", "nav, scraped")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("environment from file should apply")
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env override should win, port = %d", cfg.Server.Port)
	}
	if len(cfg.Resolver.TierOrder) != 2 || cfg.Resolver.TierOrder[0] != "nav" || cfg.Resolver.TierOrder[1] != "scraped" {
		t.Errorf("tier order env override failed: %v", cfg.Resolver.TierOrder)
	}
	if got := cfg.Resolver.GetBreakerCooldown(); got != 10*time.Second {
		t.Errorf("cooldown = %v, want 10s", got)
	}
	if got := cfg.Cache.GetChunkPause(); got != 0 {
		t.Errorf("chunk pause = %v, want 0", got)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Server.Port == 0 {
		t.Error("defaults should survive a missing file")
	}
}
