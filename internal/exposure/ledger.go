// Package exposure tracks aggregate deployed capital across all open
// positions and gates new entries against the portfolio exposure ceiling.
package exposure

import "fmt"

// epsilon absorbs float accumulation error in ceiling and floor checks so
// that a reserve bringing exposure to exactly the ceiling is granted.
const epsilon = 1e-9

// ErrNegativeLedger indicates the ledger was asked to release more than it
// holds. This is a programming-invariant failure, not a recoverable runtime
// error — the run must abort.
var ErrNegativeLedger = fmt.Errorf("exposure ledger driven negative")

// Ledger aggregates the allocated fractions of all open positions.
// Mutated only through TryReserve/Release; one ledger per strategy run.
// Designed for single-goroutine usage — no locks needed.
type Ledger struct {
	maxExposure float64
	current     float64
}

// NewLedger creates a ledger with the given exposure ceiling (e.g. 0.80).
func NewLedger(maxExposure float64) *Ledger {
	return &Ledger{maxExposure: maxExposure}
}

// TryReserve atomically grants fraction iff the ceiling holds afterwards.
// On rejection the ledger is untouched and the caller must drop the entry —
// rejected reservations are not queued or retried.
func (l *Ledger) TryReserve(fraction float64) bool {
	if fraction <= 0 {
		return false
	}
	if l.current+fraction > l.maxExposure+epsilon {
		return false
	}
	l.current += fraction
	return true
}

// Release returns a previously reserved fraction to the ledger. The position
// tracker guarantees exactly one release per reservation; a release that
// would drive the ledger negative is an invariant violation.
func (l *Ledger) Release(fraction float64) error {
	if l.current-fraction < -epsilon {
		return fmt.Errorf("%w: current=%.6f release=%.6f", ErrNegativeLedger, l.current, fraction)
	}
	l.current -= fraction
	if l.current < 0 {
		l.current = 0 // clamp float residue
	}
	return nil
}

// Exposure returns the currently reserved fraction of the portfolio.
func (l *Ledger) Exposure() float64 { return l.current }

// Max returns the configured exposure ceiling.
func (l *Ledger) Max() float64 { return l.maxExposure }
