package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func clearListEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN_IDS", "")
	t.Setenv("MARKET_IDS", "")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearListEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	if cfg.Quantity != want.Quantity || cfg.Interval != want.Interval {
		t.Errorf("distributions = %+v %+v, want defaults", cfg.Quantity, cfg.Interval)
	}
	if cfg.PBuy != 0.5 || cfg.MaxSpendPerMarket != 5.0 || cfg.MinPrice != 0.10 || cfg.MaxPrice != 0.90 {
		t.Errorf("scalars = %+v, want defaults", cfg)
	}
	if cfg.ManualApproval {
		t.Errorf("ManualApproval = true, want false")
	}
	if cfg.ErrorPause != 5*time.Second {
		t.Errorf("ErrorPause = %v, want 5s", cfg.ErrorPause)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_NestedMergeKeepsDefaults(t *testing.T) {
	clearListEnv(t)
	path := writeTempFile(t, `
quantity:
  max: 3
p_buy: 0.8
manual_approval: true
error_pause: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Quantity.Type != DistUniform || cfg.Quantity.Min != 1 || cfg.Quantity.Max != 3 {
		t.Errorf("Quantity = %+v, want uniform [1, 3]", cfg.Quantity)
	}
	if cfg.Interval.Min != 3 || cfg.Interval.Max != 15 {
		t.Errorf("Interval = %+v, want default", cfg.Interval)
	}
	if cfg.PBuy != 0.8 || !cfg.ManualApproval || cfg.ErrorPause != 2*time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxSpendPerMarket != 5.0 {
		t.Errorf("MaxSpendPerMarket = %v, want 5", cfg.MaxSpendPerMarket)
	}
}

func TestLoad_EnvFallbacks(t *testing.T) {
	t.Setenv("TOKEN_IDS", " 111, 222 ,,")
	t.Setenv("MARKET_IDS", "501")

	cfg, err := Load(writeTempFile(t, "p_buy: 0.4\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if strings.Join(cfg.Markets, ",") != "111,222" {
		t.Errorf("Markets = %v, want [111 222]", cfg.Markets)
	}
	if strings.Join(cfg.MarketIDs, ",") != "501" {
		t.Errorf("MarketIDs = %v, want [501]", cfg.MarketIDs)
	}
	if strings.Join(cfg.Identifiers(), ",") != "111,222,501" {
		t.Errorf("Identifiers = %v", cfg.Identifiers())
	}
}

func TestLoad_ExampleKeepsEnvFallbacks(t *testing.T) {
	t.Setenv("TOKEN_IDS", "111")
	t.Setenv("MARKET_IDS", "501")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if strings.Join(cfg.Identifiers(), ",") != "111,501" {
		t.Errorf("Identifiers = %v, want env values", cfg.Identifiers())
	}
}

func TestLoad_FileMarketsWinOverEnv(t *testing.T) {
	t.Setenv("TOKEN_IDS", "111")
	t.Setenv("MARKET_IDS", "")
	cfg, err := Load(writeTempFile(t, "markets:\n  - https://polymarket.com/event/x\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Markets) != 1 || cfg.Markets[0] != "https://polymarket.com/event/x" {
		t.Errorf("Markets = %v", cfg.Markets)
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	clearListEnv(t)
	t.Setenv("FLOWBOT_TEST_BUDGET", "12.5")
	cfg, err := Load(writeTempFile(t, "max_spend_per_market: ${FLOWBOT_TEST_BUDGET}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxSpendPerMarket != 12.5 {
		t.Errorf("MaxSpendPerMarket = %v, want 12.5", cfg.MaxSpendPerMarket)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearListEnv(t)
	if _, err := Load(writeTempFile(t, "quantity: [unclosed\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"bad dist type", func(c *Config) { c.Quantity.Type = "normal" }, "quantity.type"},
		{"min above max", func(c *Config) { c.Interval.Min = 20 }, "interval.min"},
		{"negative min", func(c *Config) { c.Quantity.Min = -1 }, "quantity.min"},
		{"p_buy range", func(c *Config) { c.PBuy = 1.2 }, "p_buy"},
		{"zero budget", func(c *Config) { c.MaxSpendPerMarket = 0 }, "max_spend_per_market"},
		{"inverted window", func(c *Config) { c.MinPrice, c.MaxPrice = 0.9, 0.1 }, "price window"},
		{"window above one", func(c *Config) { c.MaxPrice = 1.5 }, "price window"},
		{"negative errors", func(c *Config) { c.MaxConsecutiveErrors = -1 }, "max_consecutive_errors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}

func TestMoney(t *testing.T) {
	m, err := Default().Money()
	if err != nil {
		t.Fatalf("Money: %v", err)
	}
	if m.MaxSpendPerMarket != 5_000_000 || m.MinPrice != 100_000 || m.MaxPrice != 900_000 || m.MinOrder != 0 {
		t.Fatalf("Money = %+v", m)
	}
}
