package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the strategy engine.
type Metrics struct {
	BarsTotal      prometheus.Counter
	MalformedBars  *prometheus.CounterVec // labels: reason
	WarmupBars     prometheus.Counter
	FeedReconnects prometheus.Counter

	// Strategy decisions
	IntentsTotal     *prometheus.CounterVec // labels: action
	ExitsTotal       *prometheus.CounterVec // labels: reason
	ExposureRejected prometheus.Counter
	ExposureFraction prometheus.Gauge
	OpenPositions    prometheus.Gauge
	UniverseSize     prometheus.Gauge
	UniverseChanges  *prometheus.CounterVec // labels: action

	// Persistence
	RedisPublishDur prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedIntents     prometheus.Counter

	// Ring buffer overflow
	RingBufOverflow prometheus.Counter

	// Bar-to-intent decision latency
	DecisionDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		BarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_bars_total",
			Help: "Total daily bars admitted into the strategy",
		}),
		MalformedBars: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volarb_malformed_bars_total",
			Help: "Bars dropped before reaching indicators (by reason)",
		}, []string{"reason"}),
		WarmupBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_warmup_bars_total",
			Help: "Bars processed while an instrument's indicators were warming up",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_feed_reconnects_total",
			Help: "Market data feed reconnection attempts",
		}),

		IntentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volarb_intents_total",
			Help: "Trade intents emitted (by action)",
		}, []string{"action"}),
		ExitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volarb_exits_total",
			Help: "Position exits (by reason)",
		}, []string{"reason"}),
		ExposureRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_exposure_rejected_total",
			Help: "Entry signals dropped because the exposure ceiling was reached",
		}),
		ExposureFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volarb_exposure_fraction",
			Help: "Currently reserved portfolio fraction (0..max_exposure)",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volarb_open_positions",
			Help: "Number of open positions",
		}),
		UniverseSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volarb_universe_size",
			Help: "Current universe membership count",
		}),
		UniverseChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volarb_universe_changes_total",
			Help: "Universe membership changes (by action)",
		}, []string{"action"}),

		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volarb_redis_publish_duration_seconds",
			Help:    "Redis intent publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volarb_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volarb_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_redis_buffered_intents_total",
			Help: "Intents buffered locally during Redis circuit breaker open state",
		}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volarb_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped bars)",
		}),

		DecisionDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volarb_decision_duration_seconds",
			Help:    "Strategy processing latency per bar batch",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}),
	}

	prometheus.MustRegister(
		m.BarsTotal,
		m.MalformedBars,
		m.WarmupBars,
		m.FeedReconnects,
		m.IntentsTotal,
		m.ExitsTotal,
		m.ExposureRejected,
		m.ExposureFraction,
		m.OpenPositions,
		m.UniverseSize,
		m.UniverseChanges,
		m.RedisPublishDur,
		m.SQLiteCommitDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedIntents,
		m.RingBufOverflow,
		m.DecisionDur,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool      `json:"feed_connected"`
	LastBarTime    time.Time `json:"last_bar_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastBarTime(t time.Time) {
	h.mu.Lock()
	h.LastBarTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.FeedConnected || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	barAge := ""
	if !h.LastBarTime.IsZero() {
		barAge = time.Since(h.LastBarTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		FeedConnected   bool    `json:"feed_connected"`
		LastBarTime     string  `json:"last_bar_time"`
		BarAge          string  `json:"bar_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected:   h.FeedConnected,
		LastBarTime:     h.LastBarTime.Format(time.RFC3339),
		BarAge:          barAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
