package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

func makeBar(symbol string, price float64) model.Bar {
	return model.Bar{
		Symbol:     symbol,
		AssetClass: model.AssetEquity,
		TS:         time.Now().UTC(),
		Price:      price,
		Volume:     1000,
	}
}

func TestBank_WarmingUpUntilTrendFull(t *testing.T) {
	bank := NewBank(DefaultConfig())

	// Trend SMA (50) has the longest warmup; every update before bar 50 must
	// report insufficient data.
	for i := 0; i < 49; i++ {
		_, err := bank.Update(makeBar("AAPL", 100))
		if !errors.Is(err, ErrWarmingUp) {
			t.Fatalf("bar %d: expected ErrWarmingUp, got %v", i, err)
		}
	}

	reading, err := bank.Update(makeBar("AAPL", 100))
	if err != nil {
		t.Fatalf("bar 50: expected reading, got %v", err)
	}
	if math.Abs(reading.MiddleBand-100.0) > 1e-9 {
		t.Errorf("expected middle band=100, got %.6f", reading.MiddleBand)
	}
	if math.Abs(reading.TrendSMA-100.0) > 1e-9 {
		t.Errorf("expected trend SMA=100, got %.6f", reading.TrendSMA)
	}
	if reading.RSI != 100.0 {
		// Flat series has zero losses — Wilder RSI pins at 100.
		t.Errorf("expected RSI=100 for flat series, got %.4f", reading.RSI)
	}
	if reading.HistVolatility != 0 {
		t.Errorf("expected zero volatility for flat series, got %g", reading.HistVolatility)
	}
}

func TestBank_SymbolsIndependent(t *testing.T) {
	bank := NewBank(DefaultConfig())

	for i := 0; i < 60; i++ {
		if _, err := bank.Update(makeBar("AAPL", 100)); err != nil && i >= 49 {
			t.Fatalf("AAPL bar %d: %v", i, err)
		}
	}

	// A brand-new symbol starts cold even though AAPL is warm.
	if _, err := bank.Update(makeBar("MSFT", 50)); !errors.Is(err, ErrWarmingUp) {
		t.Fatalf("expected ErrWarmingUp for fresh symbol, got %v", err)
	}
	if bank.Size() != 2 {
		t.Errorf("expected 2 tracked symbols, got %d", bank.Size())
	}
}

func TestBank_RemoveDropsStateWithoutDisturbingOthers(t *testing.T) {
	bank := NewBank(DefaultConfig())
	for i := 0; i < 60; i++ {
		bank.Update(makeBar("AAPL", 100))
		bank.Update(makeBar("MSFT", 200))
	}

	bank.Remove("AAPL")
	if bank.Tracks("AAPL") {
		t.Error("expected AAPL state dropped")
	}

	// MSFT stays warm.
	reading, err := bank.Update(makeBar("MSFT", 200))
	if err != nil {
		t.Fatalf("MSFT should still be warm: %v", err)
	}
	if math.Abs(reading.MiddleBand-200.0) > 1e-9 {
		t.Errorf("expected MSFT middle band=200, got %.6f", reading.MiddleBand)
	}

	// Re-added symbol restarts its warmup from scratch.
	if _, err := bank.Update(makeBar("AAPL", 100)); !errors.Is(err, ErrWarmingUp) {
		t.Fatalf("expected ErrWarmingUp for re-added symbol, got %v", err)
	}
}

func TestBank_MiddleBandForExitChecks(t *testing.T) {
	bank := NewBank(DefaultConfig())

	if _, ok := bank.MiddleBand("AAPL"); ok {
		t.Error("unknown symbol should not report a middle band")
	}

	for i := 0; i < 19; i++ {
		bank.Update(makeBar("AAPL", 100))
	}
	if _, ok := bank.MiddleBand("AAPL"); ok {
		t.Error("middle band should be unavailable before 20 bars")
	}

	bank.Update(makeBar("AAPL", 100))
	mid, ok := bank.MiddleBand("AAPL")
	if !ok {
		t.Fatal("middle band should be available after 20 bars")
	}
	if math.Abs(mid-100.0) > 1e-9 {
		t.Errorf("expected middle band=100, got %.6f", mid)
	}
}

func TestBank_SnapshotRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	bank := NewBank(cfg)
	price := 100.0
	for i := 0; i < 55; i++ {
		price *= 1.001
		bank.Update(makeBar("AAPL", price))
	}
	if _, err := bank.Update(makeBar("AAPL", price*1.002)); err != nil {
		t.Fatalf("warm bank returned %v", err)
	}

	// Rebuild an identical bank from its snapshot.
	snap := bank.Snapshot()
	data, err := snap.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := UnmarshalBankSnapshot(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := RestoreBank(cfg, decoded)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	// The restored bank saw the same bars including the last one, so the next
	// identical bar must produce matching bands and RSI across both banks.
	next := makeBar("AAPL", price*1.003)
	a, errA := bank.Update(next)
	b, errB := restored.Update(next)
	if errA != nil || errB != nil {
		t.Fatalf("warm updates failed: %v / %v", errA, errB)
	}
	if math.Abs(a.MiddleBand-b.MiddleBand) > 1e-9 ||
		math.Abs(a.RSI-b.RSI) > 1e-9 ||
		math.Abs(a.HistVolatility-b.HistVolatility) > 1e-9 ||
		math.Abs(a.TrendSMA-b.TrendSMA) > 1e-9 {
		t.Errorf("restored bank diverged: %+v vs %+v", a, b)
	}
}

func TestRestoreBank_ConfigMismatch(t *testing.T) {
	bank := NewBank(DefaultConfig())
	bank.Update(makeBar("AAPL", 100))
	snap := bank.Snapshot()

	other := DefaultConfig()
	other.RSIPeriod = 7
	if _, err := RestoreBank(other, &snap); err == nil {
		t.Error("expected error restoring snapshot under different config")
	}
}
