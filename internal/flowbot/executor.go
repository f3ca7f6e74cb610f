package flowbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/polygonutil"
)

// ErrQuit is returned when the operator asks to stop at the approval prompt.
var ErrQuit = errors.New("operator quit")

// OrderExecutionError wraps a failure to build or submit an order.
type OrderExecutionError struct {
	TokenID string
	Side    clob.Side
	Err     error
}

func (e *OrderExecutionError) Error() string {
	return fmt.Sprintf("execute %s %s: %v", e.Side, shortToken(e.TokenID), e.Err)
}

func (e *OrderExecutionError) Unwrap() error { return e.Err }

// OrderSubmitter places a limit order.
type OrderSubmitter interface {
	PlaceLimitOrder(ctx context.Context, args clob.LimitOrderArgs) (*clob.OrderResponse, error)
}

// Labeler names a token for display.
type Labeler interface {
	Label(ctx context.Context, tokenID string) string
}

// FundingChecker snapshots the funder's balance and allowances.
type FundingChecker interface {
	Check(ctx context.Context) (polygonutil.Funding, error)
}

type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDryRun    Outcome = "dry_run"
)

const (
	fundingLogInterval = 10 * time.Second
	fundingLogTimeout  = 8 * time.Second
)

// Trade is a candidate sized into an order.
type Trade struct {
	Candidate
	Label          string
	SharesMicros   uint64
	NotionalMicros uint64
	SpentBefore    uint64
	CeilingMicros  uint64
}

// Recap is a one-line description of the order.
func (t Trade) Recap() string {
	return fmt.Sprintf("%s %s shares @ %s (%s USDC) on %s",
		t.Side, amount.FormatFixed(t.SharesMicros, 2), amount.Format(t.PriceMicros), amount.FormatFixed(t.NotionalMicros, 2), t.Label)
}

// Summary renders the full operator-facing trade description.
func (t Trade) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "market:    %s\n", t.Label)
	fmt.Fprintf(&b, "token:     %s\n", t.TokenID)
	fmt.Fprintf(&b, "side:      %s\n", t.Side)
	fmt.Fprintf(&b, "price:     %s\n", amount.Format(t.PriceMicros))
	fmt.Fprintf(&b, "size:      %s shares\n", amount.FormatFixed(t.SharesMicros, 2))
	fmt.Fprintf(&b, "total:     %s USDC", amount.FormatFixed(t.NotionalMicros, 2))
	if t.Clamped {
		fmt.Fprintf(&b, " (clamped from %s)", amount.FormatFixed(t.SampledMicros, 2))
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "spent:     %s / %s USDC", amount.FormatFixed(t.SpentBefore, 2), amount.FormatFixed(t.CeilingMicros, 2))
	if t.HasSpread {
		fmt.Fprintf(&b, "\nspread:    bid=%s ask=%s spread=%s mid=%s (%d bps)",
			amount.Format(t.Spread.BidMicros), amount.Format(t.Spread.AskMicros),
			amount.Format(t.Spread.SpreadMicros), amount.Format(t.Spread.MidMicros), t.Spread.Bps)
	}
	return b.String()
}

type ExecutorConfig struct {
	DryRun bool
	// SellAsShares sizes SELL orders as quantity shares rather than
	// quantity USDC worth of shares.
	SellAsShares  bool
	CeilingMicros uint64
	UseServerTime bool
}

// Executor turns candidates into orders and records successful spend.
type Executor struct {
	cfg       ExecutorConfig
	submitter OrderSubmitter
	approver  Approver
	ledger    *Ledger
	labels    Labeler
	funding   FundingChecker
	logger    *log.Logger
	events    *Events

	now            func() time.Time
	lastFundingLog time.Time
}

// NewExecutor wires an executor. submitter may be nil in dry-run mode and
// funding may be nil when no RPC endpoint is configured.
func NewExecutor(cfg ExecutorConfig, submitter OrderSubmitter, approver Approver, ledger *Ledger, labels Labeler, funding FundingChecker, logger *log.Logger, events *Events) *Executor {
	if approver == nil {
		approver = AlwaysApprove{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		cfg:       cfg,
		submitter: submitter,
		approver:  approver,
		ledger:    ledger,
		labels:    labels,
		funding:   funding,
		logger:    logger,
		events:    events,
		now:       time.Now,
	}
}

// Size converts a candidate into shares and USDC notional. Shares are
// rounded down to cents.
func (x *Executor) Size(c Candidate) (shares, notional uint64) {
	return orderSize(c.Side, c.QuantityMicros, c.PriceMicros, x.cfg.SellAsShares)
}

func orderSize(side clob.Side, quantity, price uint64, sellAsShares bool) (shares, notional uint64) {
	if side == clob.SideSell && sellAsShares {
		shares = amount.RoundDown(quantity, 2)
		return shares, amount.NotionalForShares(shares, price)
	}
	return amount.RoundDown(amount.SharesForNotional(quantity, price), 2), quantity
}

// Execute displays, approves and submits one candidate. The ledger changes
// only when the exchange accepts the order. A returned error is either
// ErrQuit, ctx's error, or an *OrderExecutionError.
func (x *Executor) Execute(ctx context.Context, c Candidate, iteration int) (Outcome, error) {
	t := Trade{Candidate: c, CeilingMicros: x.cfg.CeilingMicros, SpentBefore: x.ledger.Spent(c.TokenID)}
	t.SharesMicros, t.NotionalMicros = x.Size(c)
	t.Label = x.label(ctx, c.TokenID)

	for _, line := range strings.Split(t.Summary(), "\n") {
		x.logger.Printf("[trade] %s", line)
	}
	ev := Event{
		Iteration:      iteration,
		Attempt:        c.Attempt,
		TokenID:        c.TokenID,
		Label:          t.Label,
		Side:           string(c.Side),
		QuantityMicros: c.QuantityMicros,
		SampledMicros:  c.SampledMicros,
		Clamped:        c.Clamped,
		PriceMicros:    c.PriceMicros,
		SharesMicros:   t.SharesMicros,
		SpentMicros:    t.SpentBefore,
	}
	if c.HasSpread {
		ev.BestBidMicros = c.Spread.BidMicros
		ev.BestAskMicros = c.Spread.AskMicros
		ev.SpreadMicros = c.Spread.SpreadMicros
		ev.SpreadBps = c.Spread.Bps
	}
	cand := ev
	cand.Event = "candidate"
	x.events.Emit(cand)

	if t.SharesMicros == 0 {
		x.logger.Printf("[warn] order size rounds to zero shares; skipping")
		x.emitOrder(ev, OutcomeRejected, nil, "zero_size")
		return OutcomeRejected, nil
	}

	if x.cfg.DryRun {
		x.logger.Printf("[dry] would place GTC %s", t.Recap())
		x.emitOrder(ev, OutcomeDryRun, nil, "")
		return OutcomeDryRun, nil
	}

	decision, err := x.approver.Approve(ctx, t)
	if err != nil {
		return OutcomeSkipped, err
	}
	approval := ev
	approval.Event = "approval"
	approval.Decision = decision.String()
	x.events.Emit(approval)
	switch decision {
	case Skip:
		x.logger.Printf("[info] trade skipped by operator")
		return OutcomeSkipped, nil
	case Quit:
		x.logger.Printf("[info] operator requested quit")
		return OutcomeSkipped, ErrQuit
	}

	if x.submitter == nil {
		err := &OrderExecutionError{TokenID: c.TokenID, Side: c.Side, Err: errors.New("no order submitter configured")}
		x.emitOrder(ev, OutcomeFailed, nil, err.Error())
		return OutcomeFailed, err
	}
	resp, err := x.submitter.PlaceLimitOrder(ctx, clob.LimitOrderArgs{
		TokenID:       c.TokenID,
		Side:          c.Side,
		PriceMicros:   c.PriceMicros,
		SizeMicros:    t.SharesMicros,
		OrderType:     clob.OrderTypeGTC,
		UseServerTime: x.cfg.UseServerTime,
	})
	if err != nil {
		x.logger.Printf("[warn] order failed: %v", err)
		x.maybeLogFunding(ctx, err.Error(), t.NotionalMicros)
		x.emitOrder(ev, OutcomeFailed, nil, err.Error())
		return OutcomeFailed, &OrderExecutionError{TokenID: c.TokenID, Side: c.Side, Err: err}
	}
	if !resp.Accepted() {
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "order not accepted"
		}
		x.logger.Printf("[warn] order rejected: %s (status=%s)", msg, resp.Status)
		x.maybeLogFunding(ctx, msg, t.NotionalMicros)
		x.emitOrder(ev, OutcomeRejected, resp, msg)
		return OutcomeRejected, nil
	}

	total := x.ledger.Record(c.TokenID, t.NotionalMicros)
	x.logger.Printf("[trade] order placed id=%s status=%s spent=%s/%s USDC on %s",
		resp.OrderID, resp.Status, amount.FormatFixed(total, 2), amount.FormatFixed(x.cfg.CeilingMicros, 2), t.Label)
	x.emitOrder(ev, OutcomeSubmitted, resp, "")

	budget := Event{
		Event:           "budget",
		Iteration:       iteration,
		TokenID:         c.TokenID,
		Label:           t.Label,
		SpentMicros:     total,
		RemainingMicros: x.ledger.Remaining(c.TokenID, x.cfg.CeilingMicros),
	}
	x.events.Emit(budget)
	if budget.RemainingMicros == 0 {
		x.logger.Printf("[info] budget exhausted for %s", t.Label)
	}
	return OutcomeSubmitted, nil
}

func (x *Executor) label(ctx context.Context, tokenID string) string {
	if x.labels == nil {
		return tokenID
	}
	return x.labels.Label(ctx, tokenID)
}

func (x *Executor) emitOrder(base Event, outcome Outcome, resp *clob.OrderResponse, errMsg string) {
	ev := base
	ev.Event = "order"
	ev.Outcome = string(outcome)
	ev.Ok = outcome == OutcomeSubmitted || outcome == OutcomeDryRun
	ev.Err = errMsg
	if resp != nil {
		ev.OrderID = resp.OrderID
		ev.Status = resp.Status
	}
	x.events.Emit(ev)
}

// maybeLogFunding logs a balance/allowance snapshot when msg looks like an
// insufficient-funds rejection, at most once per fundingLogInterval.
func (x *Executor) maybeLogFunding(ctx context.Context, msg string, needed uint64) {
	if x.funding == nil || !isNotEnoughBalanceOrAllowance(msg) {
		return
	}
	now := x.now()
	if !x.lastFundingLog.IsZero() && now.Sub(x.lastFundingLog) < fundingLogInterval {
		return
	}
	x.lastFundingLog = now

	checkCtx, cancel := context.WithTimeout(ctx, fundingLogTimeout)
	defer cancel()
	f, err := x.funding.Check(checkCtx)
	if err != nil {
		x.logger.Printf("[warn] balance/allowance snapshot failed: %v", err)
		return
	}
	x.logger.Printf("[warn] balance/allowance snapshot needed=%s %s", amount.Format(needed), f.Describe())
}

func isNotEnoughBalanceOrAllowance(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "balance") && strings.Contains(m, "allowance")
}
