package strategy

import "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"

// Params holds every tunable of the volatility-arbitrage strategy.
type Params struct {
	Indicators indicator.Config

	RSIOversold   float64 // long confirmation threshold (default 30)
	RSIOverbought float64 // short confirmation threshold (default 70)

	LongFraction  float64 // portfolio fraction per long entry (default 0.05)
	ShortFraction float64 // portfolio fraction per short entry (default 0.03)
	LongStopLoss  float64 // stop distance for longs (default 0.05)
	ShortStopLoss float64 // stop distance for shorts (default 0.03)
	MaxExposure   float64 // portfolio exposure ceiling (default 0.80)

	WarmupDays int // bars inside this window feed indicators but emit no intents
}

// DefaultParams returns the production parameter set.
func DefaultParams() Params {
	return Params{
		Indicators:    indicator.DefaultConfig(),
		RSIOversold:   30,
		RSIOverbought: 70,
		LongFraction:  0.05,
		ShortFraction: 0.03,
		LongStopLoss:  0.05,
		ShortStopLoss: 0.03,
		MaxExposure:   0.80,
		WarmupDays:    60,
	}
}
