package config

import (
	"errors"
	"fmt"

	"poly-flowbot/internal/amount"
)

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	if err := c.Quantity.validate("quantity"); err != nil {
		return err
	}
	if err := c.Interval.validate("interval"); err != nil {
		return err
	}
	if c.PBuy < 0 || c.PBuy > 1 {
		return fmt.Errorf("p_buy must be in [0, 1], got %v", c.PBuy)
	}
	if c.MaxSpendPerMarket <= 0 {
		return fmt.Errorf("max_spend_per_market must be > 0, got %v", c.MaxSpendPerMarket)
	}
	if c.MinPrice < 0 || c.MaxPrice > 1 || c.MinPrice > c.MaxPrice {
		return fmt.Errorf("price window must satisfy 0 <= min_price <= max_price <= 1, got [%v, %v]", c.MinPrice, c.MaxPrice)
	}
	if c.MinOrderUSDC < 0 {
		return errors.New("min_order_usdc must be >= 0")
	}
	if c.MaxConsecutiveErrors < 0 {
		return errors.New("max_consecutive_errors must be >= 0")
	}
	if c.ErrorPause < 0 {
		return errors.New("error_pause must be >= 0")
	}
	if _, err := c.Money(); err != nil {
		return err
	}
	return nil
}

func (d Distribution) validate(prefix string) error {
	if d.Type != DistUniform {
		return fmt.Errorf("%s.type must be %q, got %q", prefix, DistUniform, d.Type)
	}
	if d.Min < 0 {
		return fmt.Errorf("%s.min must be >= 0, got %v", prefix, d.Min)
	}
	if d.Min > d.Max {
		return fmt.Errorf("%s.min (%v) must be <= %s.max (%v)", prefix, d.Min, prefix, d.Max)
	}
	return nil
}

// Money holds the monetary settings converted to micros.
type Money struct {
	MaxSpendPerMarket uint64
	MinPrice          uint64
	MaxPrice          uint64
	MinOrder          uint64
}

func (c Config) Money() (Money, error) {
	var (
		m   Money
		err error
	)
	if m.MaxSpendPerMarket, err = amount.FromFloat(c.MaxSpendPerMarket); err != nil {
		return Money{}, fmt.Errorf("max_spend_per_market: %w", err)
	}
	if m.MinPrice, err = amount.FromFloat(c.MinPrice); err != nil {
		return Money{}, fmt.Errorf("min_price: %w", err)
	}
	if m.MaxPrice, err = amount.FromFloat(c.MaxPrice); err != nil {
		return Money{}, fmt.Errorf("max_price: %w", err)
	}
	if m.MinOrder, err = amount.FromFloat(c.MinOrderUSDC); err != nil {
		return Money{}, fmt.Errorf("min_order_usdc: %w", err)
	}
	return m, nil
}
