package flowbot

// Ledger tracks USDC spent per token for the current run. It is owned by a
// single loop goroutine and is not safe for concurrent use.
type Ledger struct {
	order   []string
	entries map[string]*LedgerEntry
}

type LedgerEntry struct {
	TokenID     string
	SpentMicros uint64
	Trades      int
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*LedgerEntry)}
}

// Spent returns the running total for tokenID, 0 if never traded.
func (l *Ledger) Spent(tokenID string) uint64 {
	if e, ok := l.entries[tokenID]; ok {
		return e.SpentMicros
	}
	return 0
}

// Remaining returns how much of ceiling is left for tokenID.
func (l *Ledger) Remaining(tokenID string, ceiling uint64) uint64 {
	spent := l.Spent(tokenID)
	if spent >= ceiling {
		return 0
	}
	return ceiling - spent
}

// Record adds one successful trade of notional micros to tokenID.
func (l *Ledger) Record(tokenID string, notional uint64) uint64 {
	e, ok := l.entries[tokenID]
	if !ok {
		e = &LedgerEntry{TokenID: tokenID}
		l.entries[tokenID] = e
		l.order = append(l.order, tokenID)
	}
	e.SpentMicros += notional
	e.Trades++
	return e.SpentMicros
}

func (l *Ledger) Trades() int {
	n := 0
	for _, e := range l.entries {
		n += e.Trades
	}
	return n
}

func (l *Ledger) Total() uint64 {
	var total uint64
	for _, e := range l.entries {
		total += e.SpentMicros
	}
	return total
}

// Entries returns a copy of every entry in first-trade order.
func (l *Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.entries[id])
	}
	return out
}
