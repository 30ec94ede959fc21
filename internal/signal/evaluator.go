// Package signal derives directional trading signals from indicator readings.
//
// The rules are contrarian: a close outside a Bollinger band is read as an
// overextension to be faded, with RSI confirming the momentum extreme and
// the long-horizon trend SMA vetoing fades against a strong prevailing trend.
package signal

import "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"

// Signal is a directional trading signal for one instrument on one bar.
// It is stateless and never persisted.
type Signal string

const (
	Long  Signal = "LONG"
	Short Signal = "SHORT"
	Flat  Signal = "FLAT"
)

// Evaluator applies the band/momentum/trend confirmation rules.
type Evaluator struct {
	Oversold   float64 // RSI below this confirms a long fade (default 30)
	Overbought float64 // RSI above this confirms a short fade (default 70)
}

// NewEvaluator creates an evaluator with the given RSI thresholds.
func NewEvaluator(oversold, overbought float64) Evaluator {
	return Evaluator{Oversold: oversold, Overbought: overbought}
}

// Evaluate maps one reading to a signal. First match wins; the long and
// short conditions are mutually exclusive because a single trend direction
// cannot confirm both.
func (e Evaluator) Evaluate(r indicator.Reading) Signal {
	if r.Price < r.LowerBand && r.RSI < e.Oversold && r.Price > r.TrendSMA {
		return Long
	}
	if r.Price > r.UpperBand && r.RSI > e.Overbought && r.Price < r.TrendSMA {
		return Short
	}
	return Flat
}
