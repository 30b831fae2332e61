// Package ledger tracks the current net position and entry price per
// instrument symbol. It is the only place position state is mutated;
// callers apply confirmed fills or flatten, never write fields directly.
package ledger

import "sync"

// record holds the state for a single symbol. Each record carries its own
// mutex so operations on different symbols never contend.
type record struct {
	mu       sync.Mutex
	qty      int64
	entry    float64
	hasEntry bool
}

// Ledger is a concurrency-safe per-symbol position store. Unknown symbols
// read as flat with no entry price; records are created lazily on first
// reference and never removed.
type Ledger struct {
	symbols sync.Map // symbol → *record
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) rec(symbol string) *record {
	if v, ok := l.symbols.Load(symbol); ok {
		return v.(*record)
	}
	v, _ := l.symbols.LoadOrStore(symbol, &record{})
	return v.(*record)
}

// Position returns the current signed net position for symbol
// (positive long, negative short, zero flat).
func (l *Ledger) Position(symbol string) int64 {
	r := l.rec(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qty
}

// SetPosition overwrites the net position for symbol.
func (l *Ledger) SetPosition(symbol string, qty int64) {
	r := l.rec(symbol)
	r.mu.Lock()
	r.qty = qty
	r.mu.Unlock()
}

// EntryPrice returns the recorded entry price for symbol; the second return
// value is false when no entry price is set.
func (l *Ledger) EntryPrice(symbol string) (float64, bool) {
	r := l.rec(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry, r.hasEntry
}

// SetEntryPrice records the entry price for symbol.
func (l *Ledger) SetEntryPrice(symbol string, price float64) {
	r := l.rec(symbol)
	r.mu.Lock()
	r.entry = price
	r.hasEntry = true
	r.mu.Unlock()
}

// ApplyFill atomically adjusts the position by the signed delta of a
// confirmed fill. When the fill opens fresh exposure (the book was flat
// before), the fill price becomes the entry price; when it closes the book
// back to flat, the entry price is cleared. Returns the new position.
func (l *Ledger) ApplyFill(symbol string, delta int64, price float64) int64 {
	r := l.rec(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.qty
	r.qty += delta
	switch {
	case prior == 0 && r.qty != 0:
		r.entry = price
		r.hasEntry = true
	case r.qty == 0:
		r.entry = 0
		r.hasEntry = false
	}
	return r.qty
}

// Flatten atomically zeroes the position and clears the entry price,
// returning the prior quantity for P&L reporting. Flattening an already
// flat symbol is a no-op that returns 0.
func (l *Ledger) Flatten(symbol string) int64 {
	r := l.rec(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.qty
	r.qty = 0
	r.entry = 0
	r.hasEntry = false
	return prior
}

// OpenSymbols returns every symbol with a non-zero position.
func (l *Ledger) OpenSymbols() []string {
	var open []string
	l.symbols.Range(func(key, value any) bool {
		r := value.(*record)
		r.mu.Lock()
		qty := r.qty
		r.mu.Unlock()
		if qty != 0 {
			open = append(open, key.(string))
		}
		return true
	})
	return open
}
