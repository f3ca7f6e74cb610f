// Package config loads the flowbot YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

// DistUniform is the only supported distribution.
const DistUniform = "uniform"

// Distribution describes a sampled value.
type Distribution struct {
	Type string  `yaml:"type"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

type Config struct {
	// Quantity is the order size in USDC notional.
	Quantity Distribution `yaml:"quantity"`
	// Interval is the pause between iterations in seconds.
	Interval          Distribution `yaml:"interval"`
	PBuy              float64      `yaml:"p_buy"`
	MaxSpendPerMarket float64      `yaml:"max_spend_per_market"`
	MinPrice          float64      `yaml:"min_price"`
	MaxPrice          float64      `yaml:"max_price"`
	ManualApproval    bool         `yaml:"manual_approval"`

	Markets   []string `yaml:"markets"`
	MarketIDs []string `yaml:"market_ids"`

	// MinOrderUSDC rejects candidates below this notional; 0 disables it.
	MinOrderUSDC float64 `yaml:"min_order_usdc"`
	// MaxConsecutiveErrors stops the run after that many failed iterations
	// in a row; 0 means never.
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors"`
	ErrorPause           time.Duration `yaml:"error_pause"`
	// SellQuantityAsShares sizes SELL orders as quantity shares instead of
	// quantity USDC of shares.
	SellQuantityAsShares bool `yaml:"sell_quantity_as_shares"`
}

// Default values.
const (
	DefaultQuantityMin          = 1.0
	DefaultQuantityMax          = 10.0
	DefaultIntervalMin          = 3.0
	DefaultIntervalMax          = 15.0
	DefaultPBuy                 = 0.5
	DefaultMaxSpendPerMarket    = 5.0
	DefaultMinPrice             = 0.10
	DefaultMaxPrice             = 0.90
	DefaultMaxConsecutiveErrors = 20
	DefaultErrorPause           = 5 * time.Second
)

func Default() Config {
	return Config{
		Quantity:             Distribution{Type: DistUniform, Min: DefaultQuantityMin, Max: DefaultQuantityMax},
		Interval:             Distribution{Type: DistUniform, Min: DefaultIntervalMin, Max: DefaultIntervalMax},
		PBuy:                 DefaultPBuy,
		MaxSpendPerMarket:    DefaultMaxSpendPerMarket,
		MinPrice:             DefaultMinPrice,
		MaxPrice:             DefaultMaxPrice,
		MaxConsecutiveErrors: DefaultMaxConsecutiveErrors,
		ErrorPause:           DefaultErrorPause,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// ${VAR} references are expanded from the environment before parsing.
// Keys absent from the file keep their default, including keys inside
// quantity and interval.
func Load(path string) (Config, error) {
	cfg := Default()
	present := map[string]any{}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			expanded := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expanded, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config yaml: %w", err)
			}
			if err := yaml.Unmarshal(expanded, &present); err != nil {
				return Config{}, fmt.Errorf("parse config yaml: %w", err)
			}
		}
	}

	if _, ok := present["markets"]; !ok {
		cfg.Markets = splitList(os.Getenv("TOKEN_IDS"))
	}
	if _, ok := present["market_ids"]; !ok {
		cfg.MarketIDs = splitList(os.Getenv("MARKET_IDS"))
	}
	return cfg, nil
}

// LoadAndValidate loads and validates path.
func LoadAndValidate(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Identifiers returns markets followed by market ids, both resolved the same
// way.
func (c Config) Identifiers() []string {
	out := make([]string, 0, len(c.Markets)+len(c.MarketIDs))
	out = append(out, c.Markets...)
	return append(out, c.MarketIDs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
