package indicator

import (
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

// Config specifies the indicator periods the bank maintains per symbol.
type Config struct {
	BollingerPeriod     int     `json:"bollinger_period"`
	BollingerDeviations float64 `json:"bollinger_deviations"`
	RSIPeriod           int     `json:"rsi_period"`
	VolatilityPeriod    int     `json:"volatility_period"`
	TrendPeriod         int     `json:"trend_period"`
	AnnualizeVolatility bool    `json:"annualize_volatility"`
}

// DefaultConfig returns the standard periods: Bollinger 20×2σ, RSI 14,
// volatility 20, trend 50.
func DefaultConfig() Config {
	return Config{
		BollingerPeriod:     20,
		BollingerDeviations: 2,
		RSIPeriod:           14,
		VolatilityPeriod:    20,
		TrendPeriod:         50,
	}
}

// Reading is the per-bar indicator snapshot for one symbol. It is derived,
// recomputed every bar, and never persisted beyond the current evaluation.
type Reading struct {
	Symbol         string    `json:"symbol"`
	TS             time.Time `json:"ts"`
	Price          float64   `json:"price"`
	UpperBand      float64   `json:"upper_band"`
	MiddleBand     float64   `json:"middle_band"`
	LowerBand      float64   `json:"lower_band"`
	RSI            float64   `json:"rsi"`
	HistVolatility float64   `json:"hist_volatility"`
	TrendSMA       float64   `json:"trend_sma"`
}

// symbolIndicators holds live indicator instances for one symbol.
type symbolIndicators struct {
	bands *BollingerBands
	rsi   *RSI
	vol   *HistVolatility
	trend *SMA
}

func (si *symbolIndicators) ready() bool {
	// Volatility is non-gating: the trend SMA has the longest warmup, so by
	// the time signals can be evaluated the volatility window is long full.
	return si.bands.Ready() && si.rsi.Ready() && si.trend.Ready()
}

// Bank maintains rolling indicator state for every symbol in the universe.
// Entries are created lazily on the first bar for a symbol and removed when
// the symbol leaves the universe, without disturbing other entries.
// Designed for single-goroutine usage — no locks needed.
type Bank struct {
	cfg   Config
	state map[string]*symbolIndicators
}

// NewBank creates an indicator bank with the given periods.
func NewBank(cfg Config) *Bank {
	return &Bank{
		cfg:   cfg,
		state: make(map[string]*symbolIndicators, 128),
	}
}

// Update feeds a bar into the symbol's indicators and returns the resulting
// reading. Returns ErrWarmingUp until every gating indicator has a full
// window; callers must not evaluate signals against a warming reading.
func (b *Bank) Update(bar model.Bar) (Reading, error) {
	si, exists := b.state[bar.Symbol]
	if !exists {
		si = b.newSymbolIndicators()
		b.state[bar.Symbol] = si
	}

	si.bands.Update(bar.Price)
	si.rsi.Update(bar.Price)
	si.vol.Update(bar.Price)
	si.trend.Update(bar.Price)

	if !si.ready() {
		return Reading{}, ErrWarmingUp
	}

	return Reading{
		Symbol:         bar.Symbol,
		TS:             bar.TS,
		Price:          bar.Price,
		UpperBand:      si.bands.Upper(),
		MiddleBand:     si.bands.Middle(),
		LowerBand:      si.bands.Lower(),
		RSI:            si.rsi.Value(),
		HistVolatility: si.vol.Value(),
		TrendSMA:       si.trend.Value(),
	}, nil
}

// MiddleBand returns the current middle band for a symbol, used by exit
// checks on bars where the full reading is not needed. The second return is
// false while the bands are warming up or the symbol is unknown.
func (b *Bank) MiddleBand(symbol string) (float64, bool) {
	si, exists := b.state[symbol]
	if !exists || !si.bands.Ready() {
		return 0, false
	}
	return si.bands.Middle(), true
}

// Remove drops all indicator state for a symbol that left the universe.
func (b *Bank) Remove(symbol string) {
	delete(b.state, symbol)
}

// Tracks reports whether the bank holds state for the symbol.
func (b *Bank) Tracks(symbol string) bool {
	_, exists := b.state[symbol]
	return exists
}

// Size returns the number of symbols with live indicator state.
func (b *Bank) Size() int { return len(b.state) }

func (b *Bank) newSymbolIndicators() *symbolIndicators {
	return &symbolIndicators{
		bands: NewBollingerBands(b.cfg.BollingerPeriod, b.cfg.BollingerDeviations),
		rsi:   NewRSI(b.cfg.RSIPeriod),
		vol:   NewHistVolatility(b.cfg.VolatilityPeriod, b.cfg.AnnualizeVolatility),
		trend: NewSMA(b.cfg.TrendPeriod),
	}
}
