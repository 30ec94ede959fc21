package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PLATFORM_API_KEY", "k")
	t.Setenv("PLATFORM_CLIENT_ID", "c")
	t.Setenv("PLATFORM_PASSWORD", "p")
	t.Setenv("PLATFORM_TOTP_SECRET", "s")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	cfg := Load()

	params := cfg.StrategyParams()
	if params.Indicators.BollingerPeriod != 20 ||
		params.Indicators.RSIPeriod != 14 ||
		params.Indicators.VolatilityPeriod != 20 ||
		params.Indicators.TrendPeriod != 50 {
		t.Errorf("unexpected indicator defaults: %+v", params.Indicators)
	}
	if params.RSIOversold != 30 || params.RSIOverbought != 70 {
		t.Errorf("unexpected RSI thresholds: %g/%g", params.RSIOversold, params.RSIOverbought)
	}
	if params.LongFraction != 0.05 || params.ShortFraction != 0.03 {
		t.Errorf("unexpected fractions: %g/%g", params.LongFraction, params.ShortFraction)
	}
	if params.MaxExposure != 0.80 {
		t.Errorf("max exposure = %g, want 0.80", params.MaxExposure)
	}
	if params.WarmupDays != 60 {
		t.Errorf("warmup days = %d, want 60", params.WarmupDays)
	}

	if cfg.UniverseMinPrice != 20 || cfg.UniverseMinDollarVolume != 1e7 || cfg.UniverseSize != 100 {
		t.Errorf("unexpected universe defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOLLINGER_PERIOD", "30")
	t.Setenv("MAX_EXPOSURE", "0.5")
	t.Setenv("WARMUP_DAYS", "0")

	cfg := Load()
	if cfg.BollingerPeriod != 30 {
		t.Errorf("BollingerPeriod = %d, want 30", cfg.BollingerPeriod)
	}
	if cfg.MaxExposure != 0.5 {
		t.Errorf("MaxExposure = %g, want 0.5", cfg.MaxExposure)
	}
	if cfg.WarmupDays != 0 {
		t.Errorf("WarmupDays = %d, want 0", cfg.WarmupDays)
	}
}

func TestLoad_InvalidValueFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RSI_PERIOD", "fourteen")
	t.Setenv("LONG_FRACTION", "lots")

	cfg := Load()
	if cfg.RSIPeriod != 14 {
		t.Errorf("RSIPeriod = %d, want default 14", cfg.RSIPeriod)
	}
	if cfg.LongFraction != 0.05 {
		t.Errorf("LongFraction = %g, want default 0.05", cfg.LongFraction)
	}
}

func TestParsePinnedSymbols(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PINNED_SYMBOLS", "BTCUSD, ETHUSD,,SOLUSD ")

	cfg := Load()
	got := cfg.ParsePinnedSymbols()
	want := []string{"BTCUSD", "ETHUSD", "SOLUSD"}
	if len(got) != len(want) {
		t.Fatalf("parsed %d symbols, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbol %d = %q, want %q", i, got[i], want[i])
		}
	}
}
