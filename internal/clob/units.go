package clob

import (
	"fmt"
	"math/big"
	"strings"
)

const collateralTokenDecimals = 6

var unitsScale = big.NewInt(1_000_000)

type roundConfig struct {
	price  int
	size   int
	amount int
}

// Limit order precision per tick size. amount is always size+price, so
// size*price products stay exact in 1e6 units.
var roundingConfigByTickSize = map[string]roundConfig{
	"0.1":    {price: 1, size: 2, amount: 3},
	"0.01":   {price: 2, size: 2, amount: 4},
	"0.001":  {price: 3, size: 2, amount: 5},
	"0.0001": {price: 4, size: 2, amount: 6},
}

func roundingForTickSize(tickSize string) (roundConfig, *big.Int, error) {
	rc, ok := roundingConfigByTickSize[strings.TrimSpace(tickSize)]
	if !ok {
		return roundConfig{}, nil, fmt.Errorf("unsupported tickSize %q", tickSize)
	}
	return rc, pow10(rc.price), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// roundDownUnits truncates 1e6-scaled units to keepDecimals.
func roundDownUnits(units *big.Int, keepDecimals int) *big.Int {
	if keepDecimals >= collateralTokenDecimals {
		return new(big.Int).Set(units)
	}
	if keepDecimals < 0 {
		keepDecimals = 0
	}
	step := pow10(collateralTokenDecimals - keepDecimals)
	q := new(big.Int).Quo(units, step)
	return q.Mul(q, step)
}

// priceTicksFromMicros converts a 1e6-scaled price to ticks of 10^-decimals,
// rounding to the nearest tick.
func priceTicksFromMicros(priceMicros uint64, scale *big.Int) *big.Int {
	ticks := new(big.Int).Mul(new(big.Int).SetUint64(priceMicros), scale)
	ticks.Add(ticks, new(big.Int).Rsh(unitsScale, 1))
	return ticks.Quo(ticks, unitsScale)
}

// limitOrderAmounts returns maker/taker amounts in 1e6 units.
// BUY: maker = collateral (size*price), taker = shares.
// SELL: maker = shares, taker = collateral.
func limitOrderAmounts(side Side, sizeUnits *big.Int, priceTicks *big.Int, scale *big.Int, rc roundConfig) (maker *big.Int, taker *big.Int, err error) {
	if sizeUnits == nil || sizeUnits.Sign() <= 0 {
		return nil, nil, fmt.Errorf("size must be > 0")
	}
	if priceTicks == nil || priceTicks.Sign() <= 0 || priceTicks.Cmp(scale) >= 0 {
		return nil, nil, fmt.Errorf("price must be inside (0, 1)")
	}

	shares := roundDownUnits(sizeUnits, rc.size)
	if shares.Sign() <= 0 {
		return nil, nil, fmt.Errorf("size rounds to 0 at %d decimals", rc.size)
	}
	collateral := new(big.Int).Mul(shares, priceTicks)
	collateral.Quo(collateral, scale)
	collateral = roundDownUnits(collateral, rc.amount)
	if collateral.Sign() <= 0 {
		return nil, nil, fmt.Errorf("notional rounds to 0")
	}

	switch side {
	case SideBuy:
		return collateral, shares, nil
	case SideSell:
		return shares, collateral, nil
	default:
		return nil, nil, fmt.Errorf("invalid side %q", side)
	}
}

func formatDecimalUnits(units *big.Int, decimals int) string {
	if units == nil {
		return "0"
	}
	s := units.String()
	if decimals <= 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	i := len(s) - decimals
	out := strings.TrimRight(s[:i]+"."+s[i:], "0")
	out = strings.TrimSuffix(out, ".")
	if out == "" {
		return "0"
	}
	return out
}
