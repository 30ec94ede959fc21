// Package strategy ties indicators, signals, position state, and exposure
// accounting together into the per-bar orchestration loop.
//
// One Context exists per strategy run. It exclusively owns the indicator
// bank, the position tracker, and the exposure ledger — all single-goroutine
// structures; bars must be processed one batch at a time, each to completion.
package strategy

import (
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/exposure"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/position"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/signal"
)

// Hooks are optional observer callbacks for metrics and alerting.
// Nil hooks are skipped.
type Hooks struct {
	OnMalformedBar     func(bar model.Bar, reason string)
	OnWarmingUp        func(symbol string)
	OnExposureRejected func(symbol string, fraction float64)
	OnIntent           func(intent model.Intent)
}

// Context aggregates all mutable strategy state for one run. Construct at
// run start, tear down at run end — nothing survives across runs except an
// explicitly restored indicator snapshot.
type Context struct {
	params  Params
	bank    *indicator.Bank
	tracker *position.Tracker
	ledger  *exposure.Ledger
	eval    signal.Evaluator
	hooks   Hooks

	// lastTS guards against out-of-order bars, per symbol.
	lastTS map[string]time.Time

	// clock is the latest admitted bar timestamp across all symbols.
	clock time.Time

	// warmupUntil is set from the first bar; bars before it feed indicators
	// but never produce intents.
	warmupUntil time.Time
}

// NewContext creates a strategy context with a cold indicator bank.
func NewContext(params Params, hooks Hooks) *Context {
	return NewContextWithBank(params, hooks, indicator.NewBank(params.Indicators))
}

// NewContextWithBank creates a strategy context around an existing bank,
// typically one restored from a snapshot to skip indicator warmup.
func NewContextWithBank(params Params, hooks Hooks, bank *indicator.Bank) *Context {
	return &Context{
		params:  params,
		bank:    bank,
		tracker: position.NewTracker(),
		ledger:  exposure.NewLedger(params.MaxExposure),
		eval:    signal.NewEvaluator(params.RSIOversold, params.RSIOverbought),
		hooks:   hooks,
		lastTS:  make(map[string]time.Time, 128),
	}
}

// Exposure returns the currently deployed portfolio fraction.
func (c *Context) Exposure() float64 { return c.ledger.Exposure() }

// OpenPositions returns a snapshot of all open positions.
func (c *Context) OpenPositions() []position.Position { return c.tracker.Positions() }

// Bank exposes the indicator bank for snapshot persistence.
func (c *Context) Bank() *indicator.Bank { return c.bank }
