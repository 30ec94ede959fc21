package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Platform credentials
	PlatformBaseURL    string
	PlatformFeedURL    string
	PlatformAPIKey     string
	PlatformClientID   string
	PlatformPassword   string
	PlatformTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	WebhookURL    string // optional alert webhook, empty disables it
	LogLevel      string // debug|info|warn|error

	// Indicator settings
	BollingerPeriod     int
	BollingerDeviations float64
	RSIPeriod           int
	VolatilityPeriod    int
	TrendPeriod         int

	// Signal thresholds
	RSIOversold   float64
	RSIOverbought float64

	// Position sizing and risk
	LongFraction  float64
	ShortFraction float64
	LongStopLoss  float64
	ShortStopLoss float64
	MaxExposure   float64
	WarmupDays    int

	// Universe selection
	UniverseMinPrice        float64
	UniverseMinDollarVolume float64
	UniverseSize            int
	PinnedSymbols           string // comma-separated, always-in crypto symbols

	// Backtest
	ReplaySpeed float64 // 0 = as fast as possible
}

// Load reads configuration from environment variables with production
// defaults for every strategy parameter. Platform credentials are required.
func Load() *Config {
	return &Config{
		PlatformBaseURL:    getEnv("PLATFORM_BASE_URL", "https://api.platform.example"),
		PlatformFeedURL:    getEnv("PLATFORM_FEED_URL", "wss://stream.platform.example/v1"),
		PlatformAPIKey:     mustEnv("PLATFORM_API_KEY"),
		PlatformClientID:   mustEnv("PLATFORM_CLIENT_ID"),
		PlatformPassword:   mustEnv("PLATFORM_PASSWORD"),
		PlatformTOTPSecret: mustEnv("PLATFORM_TOTP_SECRET"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		BollingerPeriod:     getEnvInt("BOLLINGER_PERIOD", 20),
		BollingerDeviations: getEnvFloat("BOLLINGER_DEVIATIONS", 2),
		RSIPeriod:           getEnvInt("RSI_PERIOD", 14),
		VolatilityPeriod:    getEnvInt("VOLATILITY_PERIOD", 20),
		TrendPeriod:         getEnvInt("TREND_PERIOD", 50),

		RSIOversold:   getEnvFloat("RSI_OVERSOLD", 30),
		RSIOverbought: getEnvFloat("RSI_OVERBOUGHT", 70),

		LongFraction:  getEnvFloat("LONG_FRACTION", 0.05),
		ShortFraction: getEnvFloat("SHORT_FRACTION", 0.03),
		LongStopLoss:  getEnvFloat("LONG_STOP_LOSS", 0.05),
		ShortStopLoss: getEnvFloat("SHORT_STOP_LOSS", 0.03),
		MaxExposure:   getEnvFloat("MAX_EXPOSURE", 0.80),
		WarmupDays:    getEnvInt("WARMUP_DAYS", 60),

		UniverseMinPrice:        getEnvFloat("UNIVERSE_MIN_PRICE", 20),
		UniverseMinDollarVolume: getEnvFloat("UNIVERSE_MIN_DOLLAR_VOLUME", 1e7),
		UniverseSize:            getEnvInt("UNIVERSE_SIZE", 100),
		PinnedSymbols:           getEnv("PINNED_SYMBOLS", "BTCUSD,ETHUSD,SOLUSD"),

		ReplaySpeed: getEnvFloat("REPLAY_SPEED", 0),
	}
}

// StrategyParams assembles the strategy parameter set from the loaded
// configuration.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		Indicators: indicator.Config{
			BollingerPeriod:     c.BollingerPeriod,
			BollingerDeviations: c.BollingerDeviations,
			RSIPeriod:           c.RSIPeriod,
			VolatilityPeriod:    c.VolatilityPeriod,
			TrendPeriod:         c.TrendPeriod,
			AnnualizeVolatility: true,
		},
		RSIOversold:   c.RSIOversold,
		RSIOverbought: c.RSIOverbought,
		LongFraction:  c.LongFraction,
		ShortFraction: c.ShortFraction,
		LongStopLoss:  c.LongStopLoss,
		ShortStopLoss: c.ShortStopLoss,
		MaxExposure:   c.MaxExposure,
		WarmupDays:    c.WarmupDays,
	}
}

// ParsePinnedSymbols splits the pinned symbol list.
func (c *Config) ParsePinnedSymbols() []string {
	parts := strings.Split(c.PinnedSymbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %g", key, v, fallback)
		return fallback
	}
	return f
}
