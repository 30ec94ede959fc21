package indicator

import "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/rolling"

// SMA calculates a Simple Moving Average over a rolling price window.
// Used as the long-horizon trend filter: price above the SMA is an uptrend,
// below is a downtrend.
type SMA struct {
	period int
	win    *rolling.Window
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		win:    rolling.NewWindow(period),
	}
}

func (s *SMA) Name() string { return "TREND_SMA_" + itoaInd(s.period) }

func (s *SMA) Update(price float64) {
	s.win.Push(price)
}

// Value returns the mean of the last period prices. 0 until Ready.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.win.Mean()
}

func (s *SMA) Ready() bool { return s.win.Full() }

// Snapshot serializes the SMA state for checkpoint persistence.
func (s *SMA) Snapshot() Snapshot {
	return Snapshot{
		Type:   string(KindTrendSMA),
		Period: s.period,
		Values: s.win.Values(),
	}
}

// RestoreFromSnapshot restores SMA state from a checkpoint.
func (s *SMA) RestoreFromSnapshot(snap Snapshot) {
	s.period = snap.Period
	s.win = rolling.NewWindow(snap.Period)
	s.win.Restore(snap.Values)
}
