package indicator

import "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/rolling"

// BollingerBands maintains volatility bands around a rolling mean.
// Middle = mean of the last period prices, band width = deviations ×
// population standard deviation of the same window. The bands are read
// contrarian: a close outside a band is an overextension to be faded,
// not a breakout to be followed.
type BollingerBands struct {
	period     int
	deviations float64
	win        *rolling.Window
}

// NewBollingerBands creates Bollinger Bands with the given lookback period
// and band width in standard deviations (typically 20 and 2).
func NewBollingerBands(period int, deviations float64) *BollingerBands {
	return &BollingerBands{
		period:     period,
		deviations: deviations,
		win:        rolling.NewWindow(period),
	}
}

func (b *BollingerBands) Name() string { return "BOLLINGER_" + itoaInd(b.period) }

func (b *BollingerBands) Update(price float64) {
	b.win.Push(price)
}

func (b *BollingerBands) Ready() bool { return b.win.Full() }

// Middle returns the rolling mean. 0 until Ready.
func (b *BollingerBands) Middle() float64 {
	if !b.Ready() {
		return 0
	}
	return b.win.Mean()
}

// Upper returns middle + deviations × stddev. 0 until Ready.
func (b *BollingerBands) Upper() float64 {
	if !b.Ready() {
		return 0
	}
	return b.win.Mean() + b.deviations*b.win.StdDev()
}

// Lower returns middle − deviations × stddev. 0 until Ready.
func (b *BollingerBands) Lower() float64 {
	if !b.Ready() {
		return 0
	}
	return b.win.Mean() - b.deviations*b.win.StdDev()
}

// Snapshot serializes the band state for checkpoint persistence.
func (b *BollingerBands) Snapshot() Snapshot {
	return Snapshot{
		Type:       string(KindBollinger),
		Period:     b.period,
		Deviations: b.deviations,
		Values:     b.win.Values(),
	}
}

// RestoreFromSnapshot restores band state from a checkpoint.
func (b *BollingerBands) RestoreFromSnapshot(snap Snapshot) {
	b.period = snap.Period
	b.deviations = snap.Deviations
	b.win = rolling.NewWindow(snap.Period)
	b.win.Restore(snap.Values)
}
