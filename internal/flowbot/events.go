package flowbot

import (
	"log"
	"time"

	"github.com/google/uuid"

	"poly-flowbot/internal/jsonl"
)

// Event is one JSONL record. Fields not relevant to an event are omitted.
type Event struct {
	TsMs  int64  `json:"ts_ms"`
	Event string `json:"event"`
	RunID string `json:"run_id"`
	Mode  string `json:"mode"` // dry | live

	Iteration int `json:"iteration,omitempty"`
	Attempt   int `json:"attempt,omitempty"`

	TokenID string `json:"token_id,omitempty"`
	Label   string `json:"label,omitempty"`
	Side    string `json:"side,omitempty"`

	QuantityMicros uint64 `json:"quantity_micros,omitempty"`
	SampledMicros  uint64 `json:"sampled_micros,omitempty"`
	Clamped        bool   `json:"clamped,omitempty"`
	PriceMicros    uint64 `json:"price_micros,omitempty"`
	SharesMicros   uint64 `json:"shares_micros,omitempty"`

	BestBidMicros uint64 `json:"best_bid_micros,omitempty"`
	BestAskMicros uint64 `json:"best_ask_micros,omitempty"`
	SpreadMicros  uint64 `json:"spread_micros,omitempty"`
	SpreadBps     uint64 `json:"spread_bps,omitempty"`

	SpentMicros     uint64 `json:"spent_micros,omitempty"`
	RemainingMicros uint64 `json:"remaining_micros,omitempty"`

	Decision string `json:"decision,omitempty"` // approve | skip | quit
	Outcome  string `json:"outcome,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Attempts int    `json:"attempts,omitempty"`

	Trades     int    `json:"trades,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	TotalUSDC  string `json:"total_usdc,omitempty"`
	PoolSize   int    `json:"pool_size,omitempty"`

	Ok  bool   `json:"ok,omitempty"`
	Err string `json:"err,omitempty"`

	UptimeMs int64 `json:"uptime_ms,omitempty"`
}

// Events stamps and writes run events. A nil *Events or one without a
// writer drops everything.
type Events struct {
	w       *jsonl.Writer
	logger  *log.Logger
	runID   string
	mode    string
	started time.Time
	now     func() time.Time
}

func NewEvents(w *jsonl.Writer, dryRun bool, logger *log.Logger) *Events {
	if logger == nil {
		logger = log.Default()
	}
	return &Events{
		w:       w,
		logger:  logger,
		runID:   uuid.NewString(),
		mode:    runMode(dryRun),
		started: time.Now(),
		now:     time.Now,
	}
}

func runMode(dryRun bool) string {
	if dryRun {
		return "dry"
	}
	return "live"
}

func (e *Events) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

func (e *Events) Mode() string {
	if e == nil {
		return ""
	}
	return e.mode
}

func (e *Events) Emit(ev Event) {
	if e == nil || e.w == nil {
		return
	}
	now := e.now()
	ev.TsMs = now.UnixMilli()
	ev.RunID = e.runID
	ev.Mode = e.mode
	ev.UptimeMs = now.Sub(e.started).Milliseconds()
	if err := e.w.Write(ev); err != nil {
		e.logger.Printf("[warn] event log write failed: %v", err)
	}
}
