// Package flowbot runs the random liquidity-taker loop: sample a candidate,
// check it against the per-market budget and price window, then submit it.
package flowbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/state"
)

// ErrTooManyErrors stops a run after too many failed iterations in a row.
var ErrTooManyErrors = errors.New("too many consecutive iteration errors")

// Stop reasons recorded in the summary.
const (
	StopIterations    = "iterations"
	StopInterrupted   = "interrupted"
	StopOperatorQuit  = "operator_quit"
	StopTooManyErrors = "too_many_errors"
)

type RunnerConfig struct {
	// Iterations bounds the loop; 0 runs until stopped.
	Iterations           int
	MaxConsecutiveErrors int
	ErrorPause           time.Duration
}

type Runner struct {
	cfg      RunnerConfig
	searcher *Searcher
	executor *Executor
	sampler  *Sampler
	ledger   *Ledger
	labels   Labeler
	logger   *log.Logger
	events   *Events
	sleep    func(context.Context, time.Duration) error
}

func NewRunner(cfg RunnerConfig, searcher *Searcher, executor *Executor, sampler *Sampler, ledger *Ledger, labels Labeler, logger *log.Logger, events *Events) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		cfg:      cfg,
		searcher: searcher,
		executor: executor,
		sampler:  sampler,
		ledger:   ledger,
		labels:   labels,
		logger:   logger,
		events:   events,
		sleep:    sleepWithContext,
	}
}

type runCounters struct {
	iterations int
	trades     int
	dryRuns    int
	skipped    int
	rejected   int
	noOpp      int
	errors     int
}

// Run loops over pool until the iteration bound, ctx cancellation, an
// operator quit or the error budget ends it. The summary is always
// returned; the error is non-nil only for ErrTooManyErrors.
func (r *Runner) Run(ctx context.Context, pool []string) (state.RunSummary, error) {
	started := time.Now()
	r.events.Emit(Event{Event: "start", PoolSize: len(pool), Iterations: r.cfg.Iterations})

	var (
		n           runCounters
		consecutive int
		reason      = StopIterations
		runErr      error
	)
	for i := 1; r.cfg.Iterations == 0 || i <= r.cfg.Iterations; i++ {
		if ctx.Err() != nil {
			reason = StopInterrupted
			break
		}
		last := r.cfg.Iterations > 0 && i == r.cfg.Iterations
		n.iterations = i
		r.logger.Printf("[info] iteration %d", i)

		outcome, err := r.iteration(ctx, pool, i)
		switch outcome {
		case OutcomeSubmitted:
			n.trades++
		case OutcomeDryRun:
			n.dryRuns++
		case OutcomeSkipped:
			n.skipped++
		case OutcomeRejected:
			n.rejected++
		case "":
			if err == nil {
				n.noOpp++
			}
		}

		if errors.Is(err, ErrQuit) {
			reason = StopOperatorQuit
			break
		}
		if ctx.Err() != nil {
			reason = StopInterrupted
			break
		}
		if err != nil {
			n.errors++
			consecutive++
			r.logger.Printf("[warn] iteration %d failed: %v", i, err)
			r.events.Emit(Event{Event: "iteration_error", Iteration: i, Err: err.Error()})
			if r.cfg.MaxConsecutiveErrors > 0 && consecutive >= r.cfg.MaxConsecutiveErrors {
				reason = StopTooManyErrors
				runErr = fmt.Errorf("%w: %d in a row, last: %v", ErrTooManyErrors, consecutive, err)
				break
			}
			if last {
				continue
			}
			if r.sleep(ctx, r.cfg.ErrorPause) != nil {
				reason = StopInterrupted
				break
			}
			continue
		}
		consecutive = 0

		if last {
			continue
		}
		d := r.sampler.Interval()
		r.logger.Printf("[info] sleeping %s", d.Round(10*time.Millisecond))
		if r.sleep(ctx, d) != nil {
			reason = StopInterrupted
			break
		}
	}

	sum := r.summary(ctx, started, reason, n)
	r.logSummary(sum)
	return sum, runErr
}

// iteration runs one search and, when a candidate is found, one execution.
// An empty outcome means nothing was found.
func (r *Runner) iteration(ctx context.Context, pool []string, i int) (Outcome, error) {
	res, err := r.searcher.Search(ctx, pool, i)
	if err != nil {
		return "", err
	}
	if !res.Found {
		r.logger.Printf("[info] no opportunity found this iteration")
		return "", nil
	}
	return r.executor.Execute(ctx, res.Candidate, i)
}

func (r *Runner) summary(ctx context.Context, started time.Time, reason string, n runCounters) state.RunSummary {
	// Labels may need a lookup; the run ctx is likely cancelled by now.
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	total := r.ledger.Total()
	sum := state.RunSummary{
		RunID:      r.events.RunID(),
		Mode:       r.events.Mode(),
		StartedAt:  started.UTC(),
		StoppedAt:  time.Now().UTC(),
		StopReason: reason,
		Iterations: n.iterations,
		Trades:     n.trades,
		DryRuns:    n.dryRuns,
		Skipped:    n.skipped,
		Rejected:   n.rejected,
		NoOpp:      n.noOpp,
		Errors:     n.errors,
		TotalUSDC:  amount.FormatFixed(total, 2),
		Tokens:     []state.TokenSpend{},
	}
	for _, e := range r.ledger.Entries() {
		label := e.TokenID
		if r.labels != nil {
			label = r.labels.Label(lctx, e.TokenID)
		}
		sum.Tokens = append(sum.Tokens, state.TokenSpend{
			TokenID:     e.TokenID,
			Label:       label,
			Trades:      e.Trades,
			SpentUSDC:   amount.FormatFixed(e.SpentMicros, 2),
			SpentMicros: e.SpentMicros,
		})
	}
	return sum
}

func (r *Runner) logSummary(sum state.RunSummary) {
	r.logger.Printf("[info] stopped (%s) after %d iterations: trades=%d dry_runs=%d skipped=%d rejected=%d no_opportunity=%d errors=%d total_spent=%s USDC",
		sum.StopReason, sum.Iterations, sum.Trades, sum.DryRuns, sum.Skipped, sum.Rejected, sum.NoOpp, sum.Errors, sum.TotalUSDC)
	for _, t := range sum.Tokens {
		r.logger.Printf("[info]   %s: %d trades, %s USDC (%s)", t.Label, t.Trades, t.SpentUSDC, shortToken(t.TokenID))
	}
	r.events.Emit(Event{
		Event:      "summary",
		Reason:     sum.StopReason,
		Iterations: sum.Iterations,
		Trades:     sum.Trades,
		TotalUSDC:  sum.TotalUSDC,
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
