package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"poly-flowbot/internal/gamma"
)

// ErrNoMarkets means resolution produced an empty pool.
var ErrNoMarkets = errors.New("no tradable markets")

// ResolutionError is returned when an identifier that must resolve (a
// polymarket.com URL) cannot be.
type ResolutionError struct {
	Identifier string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve market %q: %v", e.Identifier, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Discovery is the subset of the Gamma client the selector needs.
type Discovery interface {
	ActiveMarkets(ctx context.Context) ([]gamma.Market, error)
	MarketsByID(ctx context.Context, id string) ([]gamma.Market, error)
	MarketsBySlug(ctx context.Context, slug string) ([]gamma.Market, error)
	EventMarkets(ctx context.Context, eventSlug string) ([]gamma.Market, error)
}

// Selector builds the token pool and remembers market labels seen while
// resolving.
type Selector struct {
	discovery Discovery
	labels    *Labels
	logger    *log.Logger

	activeLabels sync.Once
}

func NewSelector(d Discovery, labels *Labels, logger *log.Logger) *Selector {
	if labels == nil {
		labels = NewLabels()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{discovery: d, labels: labels, logger: logger}
}

func (s *Selector) Labels() *Labels { return s.labels }

// Label returns the display label for tokenID. Tokens given directly as ids
// have no label yet; the first miss loads labels from active markets once.
func (s *Selector) Label(ctx context.Context, tokenID string) string {
	if l, ok := s.labels.Lookup(tokenID); ok {
		return l
	}
	s.activeLabels.Do(func() {
		markets, err := s.discovery.ActiveMarkets(ctx)
		if err != nil {
			s.logger.Printf("[warn] market labels: %v", err)
			return
		}
		for _, m := range markets {
			for _, id := range m.TokenIDs {
				s.labels.Set(id, m.Question)
			}
		}
	})
	return s.labels.Label(tokenID)
}

// Pool picks the market pool: the single CLI market when given, otherwise
// the configured list, otherwise active markets from discovery. The result
// is deduplicated, keeps first-seen order and is never empty on success.
func (s *Selector) Pool(ctx context.Context, cliMarket string, configured []string) ([]string, error) {
	var (
		pool []string
		err  error
	)
	switch {
	case strings.TrimSpace(cliMarket) != "":
		pool, err = s.Resolve(ctx, []string{cliMarket})
	case len(configured) > 0:
		pool, err = s.Resolve(ctx, configured)
	default:
		pool, err = s.Active(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoMarkets
	}
	return pool, nil
}

// Active lists token ids of active markets with an order book.
func (s *Selector) Active(ctx context.Context) ([]string, error) {
	s.logger.Printf("[info] no markets configured; discovering active markets")
	markets, err := s.discovery.ActiveMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover active markets: %w", err)
	}
	var out []string
	seen := make(map[string]struct{})
	for _, m := range markets {
		out = s.appendTokens(out, seen, m)
	}
	s.logger.Printf("[info] discovered %d tokens from %d active markets", len(out), len(markets))
	return out, nil
}

// Resolve turns identifiers into token ids. Token ids pass through, URLs
// must resolve, ids and slugs are looked up and fall back to being used
// literally when discovery has nothing.
func (s *Selector) Resolve(ctx context.Context, identifiers []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, raw := range identifiers {
		ident := Classify(raw)
		if ident.Raw == "" {
			continue
		}
		switch ident.Kind {
		case KindTokenID:
			add(ident.Raw)
		case KindURL:
			markets, err := s.resolveURL(ctx, ident)
			if err != nil {
				return nil, &ResolutionError{Identifier: ident.Raw, Err: err}
			}
			for _, m := range markets {
				out = s.appendTokens(out, seen, m)
			}
		default:
			markets := s.lookup(ctx, ident.Raw)
			if len(markets) == 0 {
				s.logger.Printf("[warn] %q not found in discovery; using it as a token id", ident.Raw)
				add(ident.Raw)
				continue
			}
			for _, m := range markets {
				out = s.appendTokens(out, seen, m)
			}
		}
	}
	s.logger.Printf("[info] resolved %d identifiers to %d tokens", len(identifiers), len(out))
	return out, nil
}

func (s *Selector) resolveURL(ctx context.Context, ident Identifier) ([]gamma.Market, error) {
	if ident.EventSlug == "" {
		return nil, fmt.Errorf("no /event/<slug> in url")
	}
	if ident.MarketSlug != "" {
		if ms, err := s.discovery.MarketsBySlug(ctx, ident.MarketSlug); err == nil {
			if t := tradable(ms); len(t) > 0 {
				return t, nil
			}
		}
	}
	var lastErr error
	ms, err := s.discovery.EventMarkets(ctx, ident.EventSlug)
	if err == nil {
		if t := tradable(ms); len(t) > 0 {
			return t, nil
		}
	} else {
		lastErr = err
	}
	// Single-market events share their slug with the market.
	ms, err = s.discovery.MarketsBySlug(ctx, ident.EventSlug)
	if err == nil {
		if t := tradable(ms); len(t) > 0 {
			return t, nil
		}
	} else {
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no market with an order book for slug %q", ident.EventSlug)
}

// lookup tries the identifier as a Gamma id, then as a slug. Lookup errors
// are not fatal; the caller falls back to the literal identifier.
func (s *Selector) lookup(ctx context.Context, ident string) []gamma.Market {
	lookups := []func(context.Context, string) ([]gamma.Market, error){
		s.discovery.MarketsByID,
		s.discovery.MarketsBySlug,
	}
	for _, fn := range lookups {
		ms, err := fn(ctx, ident)
		if err != nil {
			s.logger.Printf("[warn] discovery lookup %q: %v", ident, err)
			continue
		}
		if t := tradable(ms); len(t) > 0 {
			return t[:1]
		}
	}
	return nil
}

func (s *Selector) appendTokens(out []string, seen map[string]struct{}, m gamma.Market) []string {
	for _, id := range m.TokenIDs {
		if !ValidTokenID(id) {
			continue
		}
		s.labels.Set(id, m.Question)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func tradable(ms []gamma.Market) []gamma.Market {
	var out []gamma.Market
	for _, m := range ms {
		if m.Tradable() {
			out = append(out, m)
		}
	}
	return out
}
