// Package book turns raw CLOB order books into validated snapshots.
package book

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/clob"
)

var (
	// ErrCrossed means the best bid is at or above the best ask.
	ErrCrossed = errors.New("crossed order book")
	// ErrMalformed means a level could not be parsed.
	ErrMalformed = errors.New("malformed order book")
)

// Level is one price bucket, both fields in micros.
type Level struct {
	PriceMicros  uint64
	SharesMicros uint64
}

// Snapshot is an order book at a point in time. Bids are sorted best
// (highest) first, asks best (lowest) first. Either side may be empty.
type Snapshot struct {
	TokenID string
	Bids    []Level
	Asks    []Level
	// MinOrderSize is the exchange's minimum order in share micros; 0 when
	// the book did not report one.
	MinOrderSize uint64
}

// FromSummary parses and normalizes a /book response. Zero-size levels are
// dropped, duplicate prices merged. It fails with ErrMalformed on
// unparseable or out-of-range prices and ErrCrossed on a crossed book.
func FromSummary(tokenID string, raw *clob.OrderBookSummary) (Snapshot, error) {
	if raw == nil {
		return Snapshot{}, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	bids, err := parseLevels(raw.Bids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: bids: %v", ErrMalformed, err)
	}
	asks, err := parseLevels(raw.Asks)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: asks: %v", ErrMalformed, err)
	}
	sortLevels(bids, true)
	sortLevels(asks, false)

	s := Snapshot{
		TokenID: tokenID,
		Bids:    mergeLevels(bids),
		Asks:    mergeLevels(asks),
	}
	if v := strings.TrimSpace(raw.MinOrder); v != "" {
		if m, err := amount.ParseMicros(v); err == nil {
			s.MinOrderSize = m
		}
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func parseLevels(in []clob.OrderSummary) ([]Level, error) {
	out := make([]Level, 0, len(in))
	for _, l := range in {
		p, err := amount.ParseMicros(l.Price)
		if err != nil {
			return nil, fmt.Errorf("price %q: %v", l.Price, err)
		}
		if p == 0 || p >= amount.Scale {
			return nil, fmt.Errorf("price %q outside (0, 1)", l.Price)
		}
		sz, err := amount.ParseMicros(l.Size)
		if err != nil {
			return nil, fmt.Errorf("size %q: %v", l.Size, err)
		}
		if sz == 0 {
			continue
		}
		out = append(out, Level{PriceMicros: p, SharesMicros: sz})
	}
	return out, nil
}

func sortLevels(levels []Level, desc bool) {
	sort.SliceStable(levels, func(i, j int) bool {
		if desc {
			return levels[i].PriceMicros > levels[j].PriceMicros
		}
		return levels[i].PriceMicros < levels[j].PriceMicros
	})
}

func mergeLevels(sorted []Level) []Level {
	merged := sorted[:0]
	for _, l := range sorted {
		if n := len(merged); n > 0 && merged[n-1].PriceMicros == l.PriceMicros {
			merged[n-1].SharesMicros += l.SharesMicros
			continue
		}
		merged = append(merged, l)
	}
	return merged
}

// Validate checks ordering and that the book is not crossed.
func (s Snapshot) Validate() error {
	for i := 1; i < len(s.Bids); i++ {
		if s.Bids[i].PriceMicros >= s.Bids[i-1].PriceMicros {
			return fmt.Errorf("%w: bids not strictly descending", ErrMalformed)
		}
	}
	for i := 1; i < len(s.Asks); i++ {
		if s.Asks[i].PriceMicros <= s.Asks[i-1].PriceMicros {
			return fmt.Errorf("%w: asks not strictly ascending", ErrMalformed)
		}
	}
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if okBid && okAsk && bid.PriceMicros >= ask.PriceMicros {
		return fmt.Errorf("%w: bid %s >= ask %s", ErrCrossed, amount.Format(bid.PriceMicros), amount.Format(ask.PriceMicros))
	}
	return nil
}

func (s Snapshot) BestBid() (Level, bool) {
	if len(s.Bids) == 0 {
		return Level{}, false
	}
	return s.Bids[0], true
}

func (s Snapshot) BestAsk() (Level, bool) {
	if len(s.Asks) == 0 {
		return Level{}, false
	}
	return s.Asks[0], true
}

// BestFor returns the level a taker on side would cross: the best ask for a
// BUY, the best bid for a SELL.
func (s Snapshot) BestFor(side clob.Side) (Level, bool) {
	if side == clob.SideBuy {
		return s.BestAsk()
	}
	return s.BestBid()
}

// Spread describes the top of book. It is only meaningful when both sides
// are populated.
type Spread struct {
	BidMicros    uint64
	AskMicros    uint64
	SpreadMicros uint64
	MidMicros    uint64
	// Bps is the spread relative to the mid, in basis points.
	Bps uint64
}

func (s Snapshot) Spread() (Spread, bool) {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return Spread{}, false
	}
	sp := Spread{
		BidMicros:    bid.PriceMicros,
		AskMicros:    ask.PriceMicros,
		SpreadMicros: ask.PriceMicros - bid.PriceMicros,
		MidMicros:    (ask.PriceMicros + bid.PriceMicros) / 2,
	}
	if sp.MidMicros > 0 {
		sp.Bps = amount.MulDiv(sp.SpreadMicros, 10_000, sp.MidMicros)
	}
	return sp, true
}
