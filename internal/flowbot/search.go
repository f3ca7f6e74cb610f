package flowbot

import (
	"context"
	"log"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/book"
	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/config"
)

// MaxAttempts bounds one search.
const MaxAttempts = 50

// BookSource fetches a fresh order book.
type BookSource interface {
	GetOrderBook(ctx context.Context, tokenID string) (*clob.OrderBookSummary, error)
}

// Reasons a search attempt is rejected.
const (
	RejectBudgetExhausted  = "budget_exhausted"
	RejectBelowMinOrder    = "below_min_order"
	RejectBookFetchFailed  = "book_fetch_failed"
	RejectInvalidBook      = "invalid_book"
	RejectEmptySide        = "empty_side"
	RejectPriceOutOfWindow = "price_out_of_window"
	RejectZeroSize         = "zero_size"
	RejectBelowMinSize     = "below_min_size"
)

// Candidate is an accepted search attempt, consumed by the executor.
type Candidate struct {
	TokenID string
	Side    clob.Side
	// QuantityMicros is the USDC quantity after clamping to the remaining
	// budget; SampledMicros is the raw draw.
	QuantityMicros uint64
	SampledMicros  uint64
	Clamped        bool
	PriceMicros    uint64
	// SharesMicros and NotionalMicros are the order size at PriceMicros.
	SharesMicros   uint64
	NotionalMicros uint64
	Book           book.Snapshot
	Spread         book.Spread
	HasSpread      bool
	Attempt        int
}

type SearchResult struct {
	Candidate  Candidate
	Found      bool
	Attempts   int
	Rejections map[string]int
}

type SearchConfig struct {
	Money config.Money
	// SellAsShares must match the executor so candidates are sized the
	// way they will be submitted.
	SellAsShares bool
}

type Searcher struct {
	sampler *Sampler
	ledger  *Ledger
	books   BookSource
	cfg     SearchConfig
	logger  *log.Logger
	events  *Events
}

func NewSearcher(sampler *Sampler, ledger *Ledger, books BookSource, cfg SearchConfig, logger *log.Logger, events *Events) *Searcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Searcher{
		sampler: sampler,
		ledger:  ledger,
		books:   books,
		cfg:     cfg,
		logger:  logger,
		events:  events,
	}
}

// Search samples candidates until one passes the budget and price checks or
// MaxAttempts is reached. Running out of attempts is not an error; the only
// error returned is ctx's.
func (s *Searcher) Search(ctx context.Context, pool []string, iteration int) (SearchResult, error) {
	res := SearchResult{Rejections: make(map[string]int)}
	if len(pool) == 0 {
		return res, nil
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts = attempt

		cand, reason := s.attempt(ctx, pool, attempt)
		if reason == "" {
			res.Candidate = cand
			res.Found = true
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Rejections[reason]++
		s.events.Emit(Event{
			Event:          "search_reject",
			Iteration:      iteration,
			Attempt:        attempt,
			TokenID:        cand.TokenID,
			Side:           string(cand.Side),
			QuantityMicros: cand.QuantityMicros,
			PriceMicros:    cand.PriceMicros,
			Reason:         reason,
		})
	}

	s.logger.Printf("[search] no opportunity after %d attempts %v", res.Attempts, res.Rejections)
	s.events.Emit(Event{Event: "search_exhausted", Iteration: iteration, Attempts: res.Attempts})
	return res, nil
}

// attempt returns the partially filled candidate and a reject reason, or an
// empty reason on acceptance.
func (s *Searcher) attempt(ctx context.Context, pool []string, attempt int) (Candidate, string) {
	c := Candidate{
		TokenID: s.sampler.Token(pool),
		Side:    s.sampler.Side(),
		Attempt: attempt,
	}
	c.SampledMicros = s.sampler.Quantity()
	c.QuantityMicros = c.SampledMicros

	money := s.cfg.Money
	remaining := s.ledger.Remaining(c.TokenID, money.MaxSpendPerMarket)
	if remaining == 0 {
		s.logger.Printf("[search] attempt=%d token=%s budget exhausted (spent=%s)", attempt, shortToken(c.TokenID), amount.Format(s.ledger.Spent(c.TokenID)))
		return c, RejectBudgetExhausted
	}
	if c.QuantityMicros > remaining {
		c.QuantityMicros = remaining
		c.Clamped = true
	}
	if c.QuantityMicros == 0 || c.QuantityMicros < money.MinOrder {
		s.logger.Printf("[search] attempt=%d token=%s quantity %s below minimum %s", attempt, shortToken(c.TokenID), amount.Format(c.QuantityMicros), amount.Format(money.MinOrder))
		return c, RejectBelowMinOrder
	}

	raw, err := s.books.GetOrderBook(ctx, c.TokenID)
	if err != nil {
		s.logger.Printf("[search] attempt=%d token=%s book fetch failed: %v", attempt, shortToken(c.TokenID), err)
		return c, RejectBookFetchFailed
	}
	snap, err := book.FromSummary(c.TokenID, raw)
	if err != nil {
		s.logger.Printf("[search] attempt=%d token=%s invalid book: %v", attempt, shortToken(c.TokenID), err)
		return c, RejectInvalidBook
	}
	c.Book = snap
	c.Spread, c.HasSpread = snap.Spread()

	best, ok := snap.BestFor(c.Side)
	if !ok {
		s.logger.Printf("[search] attempt=%d token=%s side=%s no liquidity", attempt, shortToken(c.TokenID), c.Side)
		return c, RejectEmptySide
	}
	c.PriceMicros = best.PriceMicros
	if c.PriceMicros < money.MinPrice || c.PriceMicros > money.MaxPrice {
		s.logger.Printf("[search] attempt=%d token=%s side=%s price %s outside [%s, %s]", attempt, shortToken(c.TokenID), c.Side,
			amount.Format(c.PriceMicros), amount.Format(money.MinPrice), amount.Format(money.MaxPrice))
		return c, RejectPriceOutOfWindow
	}

	c.SharesMicros, c.NotionalMicros = orderSize(c.Side, c.QuantityMicros, c.PriceMicros, s.cfg.SellAsShares)
	if c.SharesMicros == 0 {
		s.logger.Printf("[search] attempt=%d token=%s quantity %s rounds to zero shares at %s", attempt, shortToken(c.TokenID), amount.Format(c.QuantityMicros), amount.Format(c.PriceMicros))
		return c, RejectZeroSize
	}
	if c.SharesMicros < snap.MinOrderSize {
		s.logger.Printf("[search] attempt=%d token=%s %s shares below exchange minimum %s", attempt, shortToken(c.TokenID), amount.Format(c.SharesMicros), amount.Format(snap.MinOrderSize))
		return c, RejectBelowMinSize
	}
	return c, ""
}

// shortToken keeps log lines readable; token ids are 70+ digits.
func shortToken(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:6] + ".." + id[len(id)-6:]
}
