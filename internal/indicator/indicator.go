// Package indicator provides technical indicator calculations over bar data.
//
// All indicators implement the Indicator interface, receiving closing prices
// and accumulating rolling state. The Bank owns one set of indicators per
// symbol and produces a Reading snapshot per bar.
package indicator

import (
	"errors"
	"fmt"
)

// ErrWarmingUp is returned while an indicator's rolling window is not yet
// full. Callers must abstain from signal evaluation — never evaluate against
// zero values from a cold indicator.
var ErrWarmingUp = errors.New("indicator warming up: insufficient data")

// Kind selects an indicator variant. The set is closed — strategies pick
// indicators by configuration, not by subclassing.
type Kind string

const (
	KindBollinger Kind = "BOLLINGER"
	KindRSI       Kind = "RSI"
	KindHistVol   Kind = "HIST_VOL"
	KindTrendSMA  Kind = "TREND_SMA"
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "BOLLINGER_20", "RSI_14").
	Name() string

	// Update feeds a new closing price and recalculates.
	Update(price float64)

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// New creates an indicator of the given kind. Used where indicators are
// selected from configuration rather than constructed directly.
func New(kind Kind, period int) (Indicator, error) {
	switch kind {
	case KindBollinger:
		return NewBollingerBands(period, 2), nil
	case KindRSI:
		return NewRSI(period), nil
	case KindHistVol:
		return NewHistVolatility(period, false), nil
	case KindTrendSMA:
		return NewSMA(period), nil
	default:
		return nil, fmt.Errorf("unknown indicator kind %q", kind)
	}
}

// itoaInd converts int to string without importing strconv.
func itoaInd(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
