// Package state writes the end-of-run summary. Budgets are per-run, so the
// file is a report for operators and is never read back by the bot.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type TokenSpend struct {
	TokenID     string `json:"token_id"`
	Label       string `json:"label"`
	Trades      int    `json:"trades"`
	SpentUSDC   string `json:"spent_usdc"`
	SpentMicros uint64 `json:"spent_micros"`
}

type RunSummary struct {
	RunID      string       `json:"run_id"`
	Mode       string       `json:"mode"`
	StartedAt  time.Time    `json:"started_at"`
	StoppedAt  time.Time    `json:"stopped_at"`
	StopReason string       `json:"stop_reason"`
	Iterations int          `json:"iterations"`
	Trades     int          `json:"trades"`
	DryRuns    int          `json:"dry_runs,omitempty"`
	Skipped    int          `json:"skipped"`
	Rejected   int          `json:"rejected"`
	NoOpp      int          `json:"no_opportunity"`
	Errors     int          `json:"errors"`
	TotalUSDC  string       `json:"total_spent_usdc"`
	Tokens     []TokenSpend `json:"tokens"`
}

// SaveSummary writes s as indented JSON via a temp file and rename. A blank
// path is a no-op.
func SaveSummary(path string, s RunSummary) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
