package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtest-systemv1/config"
	"backtest-systemv1/internal/marketdata"
	"backtest-systemv1/internal/marketdata/feed"
	"backtest-systemv1/internal/marketdata/yahoo"
	"backtest-systemv1/internal/metrics"
	"backtest-systemv1/internal/monitor"
	"backtest-systemv1/internal/notification"
	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
	"backtest-systemv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[monitor] starting...")

	cfg := config.Load()
	tickers := cfg.ParseTickers()
	if len(tickers) == 0 {
		log.Fatal("[monitor] no tickers configured")
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetTickers(tickers)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite store ----
	os.MkdirAll("data", 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[monitor] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()

	sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[monitor] sqlite reader init failed: %v", err)
	}
	defer sqlReader.Close()
	log.Println("[monitor] sqlite ready")

	seedMonitorConfigs(sqlWriter, tickers, cfg.ParseStrategies())

	// ---- Redis publisher with circuit breaker ----
	var publisher *redisstore.BufferedPublisher
	redisPub, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[monitor] WARNING: redis init failed: %v (continuing without redis)", err)
	} else {
		cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
		cb.OnStateChange = func(from, to redisstore.State) {
			log.Printf("[monitor] redis circuit breaker: %s -> %s", from, to)
			prom.RedisCircuitBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.RedisCircuitBreakerTrips.Inc()
			}
		}
		publisher = redisstore.NewBufferedPublisher(ctx, redisPub, cb, 1000)
		publisher.OnBuffer = func() {
			prom.RedisBufferedActions.Inc()
		}
		publisher.OnFlush = func(count int) {
			log.Printf("[monitor] flushed %d buffered actions to redis", count)
		}
		defer redisPub.Close()
		log.Println("[monitor] redis publisher ready")
	}

	// ---- Liveness checks ----
	if redisPub != nil {
		health.StartLivenessChecker(ctx, redisPub.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Notification channels ----
	dispatcher := notification.NewDispatcher(notification.NewLogNotifier())
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		dispatcher.Add(notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Println("[monitor] telegram alerts enabled")
	}
	if cfg.WebhookURL != "" {
		dispatcher.Add(notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Println("[monitor] webhook alerts enabled")
	}
	if cfg.EmailEnabled() {
		dispatcher.Add(notification.NewEmailNotifier(
			cfg.SMTPServer, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPassword, cfg.RecipientEmail))
		log.Println("[monitor] email alerts enabled")
	}

	// ---- Market data provider ----
	var provider marketdata.Provider
	if cfg.FeedEnabled() {
		provider = feed.New(feed.Config{
			APIKey:     cfg.FeedAPIKey,
			ClientCode: cfg.FeedClientCode,
			Password:   cfg.FeedPassword,
			TOTPSecret: cfg.FeedTOTPSecret,
		})
		log.Println("[monitor] using broker feed for market data")
	} else {
		provider = yahoo.New("")
		log.Println("[monitor] using yahoo finance for market data")
	}

	// ---- Run the monitor loop ----
	mon := monitor.New(monitor.Options{
		Provider:           provider,
		Interval:           time.Duration(cfg.UpdateInterval) * time.Second,
		Dispatcher:         dispatcher,
		Publisher:          publisher,
		Metrics:            prom,
		Health:             health,
		ConfigReader:       sqlReader,
		SkipNonTradingDays: cfg.TradingDaysOnly,
	})

	go func() {
		if err := mon.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("[monitor] run error: %v", err)
		}
	}()

	log.Printf("[monitor] watching %d tickers every %ds", len(tickers), cfg.UpdateInterval)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[monitor] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	log.Println("[monitor] shutdown complete.")
}

// seedMonitorConfigs upserts an active monitor entry for every configured
// (ticker, strategy) pair. Entries added later through the gateway REST API
// survive restarts; seeding only reactivates the env-declared set.
func seedMonitorConfigs(w *sqlitestore.Writer, tickers, strategies []string) {
	if len(strategies) == 0 {
		for _, spec := range strategy.DefaultSpecs() {
			strategies = append(strategies, spec.Type)
		}
	}
	seeded := 0
	for _, t := range tickers {
		for _, s := range strategies {
			if _, err := strategy.New(strategy.Spec{Type: s}); err != nil {
				log.Printf("[monitor] skipping unknown strategy %q", s)
				continue
			}
			if err := w.UpsertMonitorConfig(t, s, nil); err != nil {
				log.Printf("[monitor] seed %s/%s failed: %v", t, s, err)
				continue
			}
			seeded++
		}
	}
	log.Printf("[monitor] seeded %d monitor entries", seeded)
}
