// Package position tracks per-instrument position state machines.
//
// Each held instrument advances Flat → Entered(Long|Short) → Flat. The
// tracker exclusively owns and mutates position state; the exposure ledger
// and orchestrator only read it.
package position

import (
	"fmt"
	"time"
)

// Direction of an entered position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss        ExitReason = "STOP_LOSS"
	ExitTarget          ExitReason = "MEAN_REVERSION_TARGET"
	ExitUniverseRemoved ExitReason = "UNIVERSE_REMOVED"
)

// Invariant violations — a transition attempted from an invalid state.
// These are fatal: the engine guards real capital allocation and must not
// silently absorb them.
var (
	ErrAlreadyEntered = fmt.Errorf("position already entered")
	ErrNotEntered     = fmt.Errorf("no position entered")
)

// Position is the state of one held instrument.
type Position struct {
	Symbol            string    `json:"symbol"`
	Direction         Direction `json:"direction"`
	EntryPrice        float64   `json:"entry_price"`
	StopLossPrice     float64   `json:"stop_loss_price"`
	AllocatedFraction float64   `json:"allocated_fraction"`
	EnteredAt         time.Time `json:"entered_at"`
}

// Tracker holds one state machine per entered instrument.
// Designed for single-goroutine usage — no locks needed.
type Tracker struct {
	positions map[string]*Position
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*Position, 32)}
}

// Open transitions a symbol from Flat to Entered. stopPct is the stop-loss
// distance from entry (0.05 → long stop at entry×0.95, short at entry×1.05).
// Opening an already-entered symbol is an invariant violation.
func (t *Tracker) Open(symbol string, dir Direction, price, fraction, stopPct float64, ts time.Time) (*Position, error) {
	if _, exists := t.positions[symbol]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyEntered, symbol)
	}

	stop := price * (1 - stopPct)
	if dir == Short {
		stop = price * (1 + stopPct)
	}

	pos := &Position{
		Symbol:            symbol,
		Direction:         dir,
		EntryPrice:        price,
		StopLossPrice:     stop,
		AllocatedFraction: fraction,
		EnteredAt:         ts,
	}
	t.positions[symbol] = pos
	return pos, nil
}

// CheckExit evaluates the exit conditions for an entered symbol against the
// bar price. The stop-loss check strictly precedes the mean-reversion target
// check — a bar satisfying both exits as a stop-loss. The target is only
// evaluated when the middle band is available (hasBand).
// Returns ok=false when no exit condition fired or the symbol is flat.
func (t *Tracker) CheckExit(symbol string, price, middleBand float64, hasBand bool) (ExitReason, bool) {
	pos, exists := t.positions[symbol]
	if !exists {
		return "", false
	}

	switch pos.Direction {
	case Long:
		if price <= pos.StopLossPrice {
			return ExitStopLoss, true
		}
		if hasBand && price >= middleBand {
			return ExitTarget, true
		}
	case Short:
		if price >= pos.StopLossPrice {
			return ExitStopLoss, true
		}
		if hasBand && price <= middleBand {
			return ExitTarget, true
		}
	}
	return "", false
}

// Close transitions a symbol back to Flat and returns the closed position so
// the caller can release its exposure exactly once. Closing a flat symbol is
// an invariant violation.
func (t *Tracker) Close(symbol string) (*Position, error) {
	pos, exists := t.positions[symbol]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotEntered, symbol)
	}
	delete(t.positions, symbol)
	return pos, nil
}

// Get returns the position for a symbol, if entered.
func (t *Tracker) Get(symbol string) (*Position, bool) {
	pos, exists := t.positions[symbol]
	return pos, exists
}

// Entered reports whether the symbol currently holds a position.
func (t *Tracker) Entered(symbol string) bool {
	_, exists := t.positions[symbol]
	return exists
}

// Count returns the number of open positions.
func (t *Tracker) Count() int { return len(t.positions) }

// Open positions snapshot, for status reporting.
func (t *Tracker) Positions() []Position {
	out := make([]Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	return out
}

// AllocatedTotal sums the allocated fractions of all open positions.
func (t *Tracker) AllocatedTotal() float64 {
	var total float64
	for _, p := range t.positions {
		total += p.AllocatedFraction
	}
	return total
}
