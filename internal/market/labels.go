package market

import (
	"strings"
	"sync"
)

const (
	UnknownLabel   = "Unknown market"
	maxLabelLength = 80
)

// Labels caches human-readable market names by token id for display.
type Labels struct {
	mu      sync.RWMutex
	byToken map[string]string
}

func NewLabels() *Labels {
	return &Labels{byToken: make(map[string]string)}
}

func (l *Labels) Set(tokenID, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}
	l.mu.Lock()
	l.byToken[tokenID] = question
	l.mu.Unlock()
}

// Lookup reports whether a label is cached for tokenID.
func (l *Labels) Lookup(tokenID string) (string, bool) {
	l.mu.RLock()
	q, ok := l.byToken[tokenID]
	l.mu.RUnlock()
	if !ok {
		return "", false
	}
	return truncateLabel(q), true
}

// Label returns the market question truncated to 80 characters, or
// UnknownLabel.
func (l *Labels) Label(tokenID string) string {
	if l == nil {
		return UnknownLabel
	}
	if q, ok := l.Lookup(tokenID); ok {
		return q
	}
	return UnknownLabel
}

func truncateLabel(q string) string {
	r := []rune(q)
	if len(r) <= maxLabelLength {
		return q
	}
	return string(r[:maxLabelLength-3]) + "..."
}
