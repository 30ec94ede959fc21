// cmd/engine runs the live volatility-arbitrage strategy: it authenticates
// against the external platform, streams daily bars and universe events over
// websocket, and publishes trade intents to Redis while journaling them to
// SQLite. Order execution, fills, and portfolio accounting stay on the
// platform side.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/config"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/logger"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/metrics"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/notification"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/platform"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/ringbuf"
	redisstore "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/store/redis"
	sqlitestore "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/store/sqlite"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/strategy"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/universe"
)

const snapshotInterval = 1 * time.Hour

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[engine] starting...")

	cfg := config.Load()
	slogger := logger.Init("engine", logger.ParseLevel(cfg.LogLevel))

	runID := logger.GenerateRunID("live", time.Now())
	ctx, cancel := context.WithCancel(logger.WithRunID(context.Background(), runID))
	defer cancel()
	logger.ForRun(ctx, slogger).Info("run starting")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- SQLite (bar store + intent journal + snapshots) ----
	os.MkdirAll("data", 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[engine] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	sqlWriter.OnCommit = func(n int, d time.Duration) {
		prom.SQLiteCommitDur.Observe(d.Seconds())
	}
	health.SetSQLiteOK(true)

	sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[engine] sqlite reader init failed: %v", err)
	}
	defer sqlReader.Close()

	// ---- Redis (intent publishing + snapshot cache) ----
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[engine] WARNING: redis init failed: %v (continuing without redis)", err)
		redisWriter = nil
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		defer redisWriter.Close()
	}

	var publisher *redisstore.BufferedPublisher
	if redisWriter != nil {
		breaker := redisstore.NewCircuitBreaker(5, 10*time.Second)
		breaker.OnStateChange = func(from, to redisstore.State) {
			log.Printf("[engine] redis circuit breaker: %s -> %s", from, to)
			prom.RedisCircuitBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.RedisCircuitBreakerTrips.Inc()
			}
		}
		publisher = redisstore.NewBufferedPublisher(ctx, redisWriter, breaker, 10000)
		publisher.OnBuffer = func() { prom.RedisBufferedIntents.Inc() }
	}

	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Restore indicator state (redis cache first, sqlite fallback) ----
	params := cfg.StrategyParams()
	var snap *indicator.BankSnapshot
	if redisWriter != nil {
		snap, err = redisWriter.LoadSnapshot(ctx)
		if err != nil {
			log.Printf("[engine] redis snapshot load failed: %v", err)
		}
	}
	if snap == nil {
		snap, err = sqlReader.ReadLatestSnapshot()
		if err != nil {
			log.Printf("[engine] sqlite snapshot load failed: %v", err)
		}
	}
	bank, err := indicator.RestoreBank(params.Indicators, snap)
	if err != nil {
		log.Printf("[engine] snapshot restore rejected (%v), starting cold", err)
		bank = indicator.NewBank(params.Indicators)
	} else if snap != nil {
		log.Printf("[engine] restored indicator state for %d symbols (saved %s)",
			len(snap.Symbols), snap.CreatedAt.Format(time.RFC3339))
	}

	// ---- Strategy context with metric hooks ----
	hooks := strategy.Hooks{
		OnMalformedBar: func(bar model.Bar, reason string) {
			prom.MalformedBars.WithLabelValues(reason).Inc()
		},
		OnWarmingUp: func(symbol string) {
			prom.WarmupBars.Inc()
		},
		OnExposureRejected: func(symbol string, fraction float64) {
			prom.ExposureRejected.Inc()
		},
		OnIntent: func(intent model.Intent) {
			prom.IntentsTotal.WithLabelValues(string(intent.Action)).Inc()
			if intent.Action == model.ActionExit {
				prom.ExitsTotal.WithLabelValues(intent.Reason).Inc()
			}
		},
	}
	strat := strategy.NewContextWithBank(params, hooks, bank)

	// ---- Universe: pinned cryptos are always in ----
	selector := universe.NewSelector(cfg.UniverseMinPrice, cfg.UniverseMinDollarVolume,
		cfg.UniverseSize, cfg.ParsePinnedSymbols())
	initialEvents := selector.Rebalance(nil)
	symbols := make([]string, 0, selector.Members())
	for _, ev := range initialEvents {
		if _, err := strat.HandleUniverseEvent(ev); err != nil {
			log.Fatalf("[engine] universe seed failed: %v", err)
		}
		prom.UniverseChanges.WithLabelValues(string(ev.Action)).Inc()
		symbols = append(symbols, ev.Symbol)
	}
	prom.UniverseSize.Set(float64(selector.Members()))
	if redisWriter != nil {
		if err := redisWriter.SetUniverse(ctx, symbols); err != nil {
			log.Printf("[engine] universe publish failed: %v", err)
		}
	}

	// ---- Platform session + feed ----
	session := platform.NewSession(platform.SessionConfig{
		BaseURL:    cfg.PlatformBaseURL,
		APIKey:     cfg.PlatformAPIKey,
		ClientID:   cfg.PlatformClientID,
		Password:   cfg.PlatformPassword,
		TOTPSecret: cfg.PlatformTOTPSecret,
	})
	if err := session.Login(ctx); err != nil {
		log.Fatalf("[engine] platform login failed: %v", err)
	}
	defer func() {
		logoutCtx, logoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer logoutCancel()
		if err := session.Logout(logoutCtx); err != nil {
			log.Printf("[engine] logout failed: %v", err)
		}
	}()

	feed, err := platform.NewFeed(platform.FeedConfig{
		URL:         cfg.PlatformFeedURL,
		APIKey:      cfg.PlatformAPIKey,
		ClientID:    cfg.PlatformClientID,
		AccessToken: session.AccessToken(),
		FeedToken:   session.FeedToken(),
		Symbols:     symbols,
	})
	if err != nil {
		log.Fatalf("[engine] feed init failed: %v", err)
	}
	feed.OnReconnect = func() {
		prom.FeedReconnects.Inc()
		health.SetFeedConnected(false)
	}
	feed.OnConnect = func() { health.SetFeedConnected(true) }

	// ---- Pipeline channels ----
	barCh := make(chan model.Bar, 4096)
	eventCh := make(chan model.UniverseEvent, 256)
	barStoreCh := make(chan model.Bar, 4096)

	go func() {
		if err := feed.Run(ctx, barCh, eventCh); err != nil && ctx.Err() == nil {
			log.Printf("[engine] feed stopped: %v", err)
		}
	}()

	// SQLite bar recorder (off hot path)
	go sqlWriter.Run(ctx, barStoreCh)

	// Ring buffer decouples the feed reader from the strategy loop.
	ring := ringbuf.New(8192)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case bar, ok := <-barCh:
				if !ok {
					return
				}
				if !ring.Push(bar) {
					prom.RingBufOverflow.Inc()
				}
			}
		}
	}()

	// ---- Alerting ----
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	dispatcher := notification.NewDispatcher(notifiers...)

	if redisWriter != nil {
		redisReader, err := redisstore.NewReader(redisstore.ReaderConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("[engine] redis reader init failed: %v (no intent alerts)", err)
		} else {
			defer redisReader.Close()
			alertCh := make(chan model.Intent, 256)
			go redisReader.SubscribeIntents(ctx, alertCh)
			go dispatcher.RunIntentAlerts(ctx, alertCh)
		}
	}

	// ---- Strategy loop (single goroutine owns all strategy state) ----
	emit := func(intent model.Intent) {
		if publisher != nil {
			start := time.Now()
			if err := publisher.Publish(intent); err != nil {
				log.Printf("[engine] intent publish failed: %v", err)
			}
			prom.RedisPublishDur.Observe(time.Since(start).Seconds())
		}
		if err := sqlWriter.RecordIntent(intent); err != nil {
			log.Printf("[engine] intent journal failed: %v", err)
		}
	}

	strategyDone := make(chan error, 1)
	go func() {
		drainBuf := make([]model.Bar, 256)
		for {
			select {
			case <-ctx.Done():
				strategyDone <- ctx.Err()
				return

			case ev := <-eventCh:
				intent, err := strat.HandleUniverseEvent(ev)
				if err != nil {
					strategyDone <- err
					return
				}
				prom.UniverseChanges.WithLabelValues(string(ev.Action)).Inc()
				if intent != nil {
					emit(*intent)
				}
				prom.ExposureFraction.Set(strat.Exposure())
				prom.OpenPositions.Set(float64(len(strat.OpenPositions())))

			default:
				n := ring.Drain(drainBuf)
				if n == 0 {
					time.Sleep(time.Millisecond)
					continue
				}
				batch := drainBuf[:n]

				start := time.Now()
				intents, err := strat.ProcessBatch(batch)
				prom.DecisionDur.Observe(time.Since(start).Seconds())

				for _, intent := range intents {
					emit(intent)
				}
				if err != nil {
					strategyDone <- err
					return
				}

				prom.BarsTotal.Add(float64(n))
				prom.ExposureFraction.Set(strat.Exposure())
				prom.OpenPositions.Set(float64(len(strat.OpenPositions())))
				health.SetLastBarTime(batch[n-1].TS)

				for _, bar := range batch {
					select {
					case barStoreCh <- bar:
					default:
					}
				}
			}
		}
	}()

	// ---- Periodic indicator snapshots ----
	saveSnapshot := func() {
		s := strat.Bank().Snapshot()
		if err := sqlWriter.SaveSnapshot(&s); err != nil {
			log.Printf("[engine] sqlite snapshot save failed: %v", err)
		}
		if redisWriter != nil {
			if err := redisWriter.SaveSnapshot(ctx, &s); err != nil {
				log.Printf("[engine] redis snapshot save failed: %v", err)
			}
		}
	}
	go func() {
		ticker := time.NewTicker(snapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				saveSnapshot()
			}
		}
	}()

	log.Println("[engine] ╔═══════════════════════════════════════════════════════════╗")
	log.Println("[engine] ║  Volatility Arbitrage Engine — Live Mode                  ║")
	log.Println("[engine] ║                                                           ║")
	log.Println("[engine] ║  [Feed WS] → [RingBuf] → [Strategy] → [Redis/SQLite]      ║")
	log.Printf("[engine] ║  Universe: %d pinned, max %-3d equities by liquidity       ║",
		len(cfg.ParsePinnedSymbols()), cfg.UniverseSize)
	log.Printf("[engine] ║  Exposure ceiling: %.0f%%  Warmup: %d days                  ║",
		params.MaxExposure*100, params.WarmupDays)
	log.Println("[engine] ╚═══════════════════════════════════════════════════════════╝")

	// ---- Wait for shutdown or invariant violation ----
	select {
	case <-sigCh:
		log.Println("[engine] shutdown signal received, cleaning up...")
	case err := <-strategyDone:
		if err != nil && err != context.Canceled {
			dispatcher.Dispatch(context.Background(), notification.ViolationAlert(err))
			log.Printf("[engine] FATAL: strategy aborted: %v", err)
		}
	}
	cancel()

	saveSnapshot()
	for _, pos := range strat.OpenPositions() {
		log.Printf("[engine] open at shutdown: %s %s entry=%.4f stop=%.4f",
			pos.Direction, pos.Symbol, pos.EntryPrice, pos.StopLossPrice)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	log.Println("[engine] shutdown complete.")
}
