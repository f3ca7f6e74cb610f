// Package amount holds fixed-point helpers for USDC and share quantities.
// Everything is an unsigned integer count of micros (1e6 scale), which is
// also the on-chain unit for both collateral and outcome tokens.
package amount

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"
)

const Scale = uint64(1_000_000)

const scaleDecimals = 6

// ParseMicros parses a base-10 decimal string into micros. Digits beyond the
// sixth fractional place are truncated.
func ParseMicros(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, fmt.Errorf("empty decimal")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative not supported: %q", s)
	}
	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	return toMicros(d.Truncate(scaleDecimals))
}

// FromFloat converts a float (config value, sampled quantity) into micros
// using its shortest decimal representation, so 0.1 becomes exactly 100000.
func FromFloat(f float64) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative not supported: %v", f)
	}
	return toMicros(decimal.NewFromFloat(f).Round(scaleDecimals))
}

// FromFloatRounded converts f after rounding it half away from zero to
// places decimals.
func FromFloatRounded(f float64, places int32) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("invalid value %v", f)
	}
	return toMicros(decimal.NewFromFloat(f).Round(places))
}

func toMicros(d decimal.Decimal) (uint64, error) {
	v := d.Shift(scaleDecimals).BigInt()
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("decimal out of range: %s", d.String())
	}
	return v.Uint64(), nil
}

// Decimal returns m as a decimal value.
func Decimal(m uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(m), -scaleDecimals)
}

// Format renders micros with trailing zeros trimmed ("4.2", "10").
func Format(m uint64) string {
	return Decimal(m).String()
}

// FormatFixed renders micros with exactly places decimals.
func FormatFixed(m uint64, places int32) string {
	return Decimal(m).StringFixed(places)
}

// RoundDown truncates m to places decimals.
func RoundDown(m uint64, places int) uint64 {
	if places >= scaleDecimals {
		return m
	}
	if places < 0 {
		places = 0
	}
	step := uint64(math.Pow10(scaleDecimals - places))
	return m / step * step
}

// MulDiv computes a*b/div with a 128-bit intermediate, saturating at
// MaxUint64.
func MulDiv(a, b, div uint64) uint64 {
	if div == 0 {
		panic("amount.MulDiv: div=0")
	}
	hi, lo := bits.Mul64(a, b)
	if hi == 0 {
		return lo / div
	}
	if hi < div {
		q, _ := bits.Div64(hi, lo, div)
		return q
	}
	return math.MaxUint64
}

// SharesForNotional returns how many share micros notional buys at price.
func SharesForNotional(notional, price uint64) uint64 {
	if price == 0 {
		return 0
	}
	return MulDiv(notional, Scale, price)
}

// NotionalForShares returns the collateral value of shares at price.
func NotionalForShares(shares, price uint64) uint64 {
	return MulDiv(shares, price, Scale)
}
