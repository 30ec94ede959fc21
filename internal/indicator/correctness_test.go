package indicator

import (
	"math"
	"testing"
)

func TestBollinger_KnownValues(t *testing.T) {
	bb := NewBollingerBands(20, 2)

	// Alternate 90/110 for 20 bars: mean=100, population stddev=10.
	for i := 0; i < 20; i++ {
		price := 90.0
		if i%2 == 1 {
			price = 110.0
		}
		bb.Update(price)
	}

	if !bb.Ready() {
		t.Fatal("expected Ready after 20 bars")
	}
	if math.Abs(bb.Middle()-100.0) > 1e-9 {
		t.Errorf("expected middle=100, got %.6f", bb.Middle())
	}
	if math.Abs(bb.Upper()-120.0) > 1e-9 {
		t.Errorf("expected upper=120, got %.6f", bb.Upper())
	}
	if math.Abs(bb.Lower()-80.0) > 1e-9 {
		t.Errorf("expected lower=80, got %.6f", bb.Lower())
	}
}

func TestBollinger_NotReadyBeforePeriod(t *testing.T) {
	bb := NewBollingerBands(20, 2)
	for i := 0; i < 19; i++ {
		bb.Update(100)
		if bb.Ready() {
			t.Fatalf("bar %d: Ready before window full", i)
		}
	}
	if bb.Middle() != 0 || bb.Upper() != 0 || bb.Lower() != 0 {
		t.Error("bands should report 0 while warming up")
	}
}

func TestBollinger_UsesOnlyLastPeriod(t *testing.T) {
	bb := NewBollingerBands(20, 2)
	// 20 bars of noise, then 20 bars of exactly 50 — old noise must be evicted.
	for i := 0; i < 20; i++ {
		bb.Update(float64(100 + i*7))
	}
	for i := 0; i < 20; i++ {
		bb.Update(50)
	}
	if math.Abs(bb.Middle()-50.0) > 1e-9 {
		t.Errorf("expected middle=50 after eviction, got %.6f", bb.Middle())
	}
	if math.Abs(bb.Upper()-bb.Lower()) > 1e-9 {
		t.Errorf("expected zero band width for constant prices, got upper=%.6f lower=%.6f", bb.Upper(), bb.Lower())
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i <= 20; i++ {
		rsi.Update(float64(100 + i))
	}
	if !rsi.Ready() {
		t.Fatal("expected Ready after 21 bars")
	}
	if rsi.Value() != 100.0 {
		t.Errorf("expected RSI=100 for all-gain series, got %.4f", rsi.Value())
	}
}

func TestRSI_AllLossesNearZero(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i <= 20; i++ {
		rsi.Update(float64(200 - i))
	}
	if rsi.Value() > 1e-9 {
		t.Errorf("expected RSI≈0 for all-loss series, got %.6f", rsi.Value())
	}
}

func TestRSI_AlwaysInBounds(t *testing.T) {
	rsi := NewRSI(14)
	// Deterministic pseudo-random walk
	price := 100.0
	seed := int64(42)
	for i := 0; i < 300; i++ {
		seed = (seed*6364136223846793005 + 1442695040888963407) % (1 << 31)
		if seed < 0 {
			seed = -seed
		}
		price += float64(seed%200-100) / 50.0
		if price < 1 {
			price = 1
		}
		rsi.Update(price)
		if v := rsi.Value(); v < 0 || v > 100 {
			t.Fatalf("bar %d: RSI %.4f out of [0,100]", i, v)
		}
	}
}

func TestRSI_WilderSmoothing(t *testing.T) {
	// 3-period RSI with hand-computed values.
	rsi := NewRSI(3)
	prices := []float64{10, 11, 10.5, 11.5, 12}
	for _, p := range prices {
		rsi.Update(p)
	}
	// Deltas: +1, -0.5, +1, +0.5
	// Seed over first 3 deltas: avgGain=(1+0+1)/3=2/3, avgLoss=0.5/3=1/6
	// Wilder step with delta +0.5: avgGain=(2/3*2+0.5)/3=11/18, avgLoss=(1/6*2)/3=1/9
	ag := 11.0 / 18.0
	al := 1.0 / 9.0
	want := 100.0 - 100.0/(1.0+ag/al)
	if math.Abs(rsi.Value()-want) > 1e-9 {
		t.Errorf("expected RSI=%.6f, got %.6f", want, rsi.Value())
	}
}

func TestHistVol_ConstantPriceZero(t *testing.T) {
	hv := NewHistVolatility(20, false)
	for i := 0; i < 30; i++ {
		hv.Update(100)
	}
	if !hv.Ready() {
		t.Fatal("expected Ready after 21 bars (20 returns)")
	}
	if hv.Value() != 0 {
		t.Errorf("expected zero volatility for constant price, got %g", hv.Value())
	}
}

func TestHistVol_ReadyNeedsPeriodReturns(t *testing.T) {
	hv := NewHistVolatility(20, false)
	for i := 0; i < 20; i++ {
		hv.Update(float64(100 + i))
		if hv.Ready() {
			t.Fatalf("bar %d: Ready with fewer than 20 returns", i)
		}
	}
	hv.Update(120)
	if !hv.Ready() {
		t.Fatal("expected Ready on 21st bar")
	}
}

func TestHistVol_Annualized(t *testing.T) {
	raw := NewHistVolatility(20, false)
	ann := NewHistVolatility(20, true)
	price := 100.0
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.99
		}
		raw.Update(price)
		ann.Update(price)
	}
	want := raw.Value() * math.Sqrt(252)
	if math.Abs(ann.Value()-want) > 1e-12 {
		t.Errorf("expected annualized=%.8f, got %.8f", want, ann.Value())
	}
}

func TestNew_FactoryKinds(t *testing.T) {
	cases := []struct {
		kind Kind
		name string
	}{
		{KindBollinger, "BOLLINGER_20"},
		{KindRSI, "RSI_14"},
		{KindHistVol, "HIST_VOL_20"},
		{KindTrendSMA, "TREND_SMA_50"},
	}
	periods := map[Kind]int{KindBollinger: 20, KindRSI: 14, KindHistVol: 20, KindTrendSMA: 50}
	for _, tc := range cases {
		ind, err := New(tc.kind, periods[tc.kind])
		if err != nil {
			t.Fatalf("New(%s): %v", tc.kind, err)
		}
		if ind.Name() != tc.name {
			t.Errorf("kind %s: expected name %s, got %s", tc.kind, tc.name, ind.Name())
		}
	}
	if _, err := New(Kind("MACD"), 12); err == nil {
		t.Error("expected error for unknown kind")
	}
}
