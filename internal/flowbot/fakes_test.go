package flowbot

import (
	"context"
	"io"
	"log"
	"math/rand/v2"
	"testing"
	"time"

	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/config"
	"poly-flowbot/internal/polygonutil"
)

const (
	tokenA = "11111111111111111111111111111111111111111111111111111111111111111111111111"
	tokenB = "22222222222222222222222222222222222222222222222222222222222222222222222222"
)

type fakeBooks struct {
	books map[string]*clob.OrderBookSummary
	err   error
	calls int
}

func (f *fakeBooks) GetOrderBook(ctx context.Context, tokenID string) (*clob.OrderBookSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.books[tokenID], nil
}

// bookSummary builds a book without an exchange minimum size; set MinOrder
// on the result to test it.
func bookSummary(bids, asks [][2]string) *clob.OrderBookSummary {
	raw := &clob.OrderBookSummary{TickSize: "0.01"}
	for _, b := range bids {
		raw.Bids = append(raw.Bids, clob.OrderSummary{Price: b[0], Size: b[1]})
	}
	for _, a := range asks {
		raw.Asks = append(raw.Asks, clob.OrderSummary{Price: a[0], Size: a[1]})
	}
	return raw
}

type fakeSubmitter struct {
	resp  *clob.OrderResponse
	err   error
	calls []clob.LimitOrderArgs
}

func (f *fakeSubmitter) PlaceLimitOrder(ctx context.Context, args clob.LimitOrderArgs) (*clob.OrderResponse, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &clob.OrderResponse{Success: true, OrderID: "0xorder", Status: "live"}, nil
}

type scriptedApprover struct {
	decisions []Decision
	seen      []Trade
}

func (s *scriptedApprover) Approve(ctx context.Context, t Trade) (Decision, error) {
	s.seen = append(s.seen, t)
	if len(s.decisions) == 0 {
		return Approve, nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

type mapLabels map[string]string

func (m mapLabels) Label(ctx context.Context, tokenID string) string {
	if l, ok := m[tokenID]; ok {
		return l
	}
	return "Unknown market"
}

type fakeFunding struct {
	calls int
}

func (f *fakeFunding) Check(ctx context.Context) (polygonutil.Funding, error) {
	f.calls++
	return polygonutil.Funding{BalanceMicros: 1_000_000}, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testRNG() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

// fixedConfig samples quantity q USDC and side BUY (pBuy=1) or SELL (pBuy=0).
func fixedConfig(q, pBuy float64) config.Config {
	cfg := config.Default()
	cfg.Quantity = config.Distribution{Type: config.DistUniform, Min: q, Max: q}
	cfg.Interval = config.Distribution{Type: config.DistUniform, Min: 1, Max: 1}
	cfg.PBuy = pBuy
	return cfg
}

func mustMoney(t *testing.T, cfg config.Config) config.Money {
	t.Helper()
	m, err := cfg.Money()
	if err != nil {
		t.Fatalf("Money: %v", err)
	}
	return m
}

type harness struct {
	cfg      config.Config
	ledger   *Ledger
	books    *fakeBooks
	sub      *fakeSubmitter
	approver *scriptedApprover
	searcher *Searcher
	executor *Executor
	runner   *Runner
	sleeps   []time.Duration
}

func newHarness(t *testing.T, cfg config.Config, books *fakeBooks, dryRun bool, iterations int) *harness {
	t.Helper()
	h := &harness{
		cfg:      cfg,
		ledger:   NewLedger(),
		books:    books,
		sub:      &fakeSubmitter{},
		approver: &scriptedApprover{},
	}
	money := mustMoney(t, cfg)
	events := NewEvents(nil, dryRun, quietLogger())
	sampler := NewSampler(cfg, testRNG())
	labels := mapLabels{tokenA: "Will A happen?", tokenB: "Will B happen?"}
	h.searcher = NewSearcher(sampler, h.ledger, books, SearchConfig{Money: money, SellAsShares: cfg.SellQuantityAsShares}, quietLogger(), events)
	h.executor = NewExecutor(ExecutorConfig{DryRun: dryRun, SellAsShares: cfg.SellQuantityAsShares, CeilingMicros: money.MaxSpendPerMarket},
		h.sub, h.approver, h.ledger, labels, nil, quietLogger(), events)
	h.runner = NewRunner(RunnerConfig{Iterations: iterations, MaxConsecutiveErrors: cfg.MaxConsecutiveErrors, ErrorPause: cfg.ErrorPause},
		h.searcher, h.executor, sampler, h.ledger, labels, quietLogger(), events)
	h.runner.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return ctx.Err()
	}
	return h
}
