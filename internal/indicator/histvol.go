package indicator

import (
	"math"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/rolling"
)

// tradingDaysPerYear annualizes daily log-return volatility.
const tradingDaysPerYear = 252

// HistVolatility measures realized volatility as the population standard
// deviation of log-returns over a rolling window. It is a corroborating
// regime reading only — the Bollinger width already encodes deviation
// range, so volatility never gates a signal on its own.
type HistVolatility struct {
	period    int
	annualize bool
	returns   *rolling.Window
	prevPrice float64
	havePrev  bool
}

// NewHistVolatility creates a historical volatility indicator over the given
// number of log-returns. When annualize is true the value is scaled by
// sqrt(252).
func NewHistVolatility(period int, annualize bool) *HistVolatility {
	return &HistVolatility{
		period:    period,
		annualize: annualize,
		returns:   rolling.NewWindow(period),
	}
}

func (h *HistVolatility) Name() string { return "HIST_VOL_" + itoaInd(h.period) }

func (h *HistVolatility) Update(price float64) {
	if h.havePrev && h.prevPrice > 0 {
		h.returns.Push(math.Log(price / h.prevPrice))
	}
	h.prevPrice = price
	h.havePrev = true
}

// Value returns the rolling volatility of log-returns. 0 until Ready.
func (h *HistVolatility) Value() float64 {
	if !h.Ready() {
		return 0
	}
	v := h.returns.StdDev()
	if h.annualize {
		v *= math.Sqrt(tradingDaysPerYear)
	}
	return v
}

func (h *HistVolatility) Ready() bool { return h.returns.Full() }

// Snapshot serializes the volatility state for checkpoint persistence.
func (h *HistVolatility) Snapshot() Snapshot {
	return Snapshot{
		Type:      string(KindHistVol),
		Period:    h.period,
		Values:    h.returns.Values(),
		PrevClose: h.prevPrice,
		Count:     boolToInt(h.havePrev),
		Annualize: h.annualize,
	}
}

// RestoreFromSnapshot restores volatility state from a checkpoint.
func (h *HistVolatility) RestoreFromSnapshot(snap Snapshot) {
	h.period = snap.Period
	h.annualize = snap.Annualize
	h.returns = rolling.NewWindow(snap.Period)
	h.returns.Restore(snap.Values)
	h.prevPrice = snap.PrevClose
	h.havePrev = snap.Count > 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
