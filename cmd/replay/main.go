// cmd/replay streams stored bars through the detector pipeline at a
// configurable speed, publishing emitted actions to Redis exactly as the
// live monitor would. Useful as a dry run before pointing the monitor at
// a live data source.
//
// Usage:
//
//	go run ./cmd/replay --tickers=AAPL,TSLA --strategy=RSI --speed=100
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"backtest-systemv1/config"
	"backtest-systemv1/internal/marketdata/replay"
	"backtest-systemv1/internal/model"
	sigdetect "backtest-systemv1/internal/signal"
	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
	"backtest-systemv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	tickersStr := flag.String("tickers", "", "Comma-separated tickers (required)")
	strategyCfg := flag.String("strategy", "", "Comma-separated strategy types (default: all)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start replay from (0=all)")
	speed := flag.Float64("speed", 0, "Playback speed multiplier (0=max, 1=realtime, 100=100x)")
	dbPath := flag.String("db", "", "Path to SQLite database (default: SQLITE_PATH)")
	noRedis := flag.Bool("no-redis", false, "Log actions only, skip Redis publishing")
	flag.Parse()

	cfg := config.Load()
	if *dbPath == "" {
		*dbPath = cfg.SQLitePath
	}

	tickers := splitList(*tickersStr)
	if len(tickers) == 0 {
		log.Fatal("[replay] --tickers is required")
	}

	specs := strategy.DefaultSpecs()
	if names := splitList(*strategyCfg); len(names) != 0 {
		specs = specs[:0]
		for _, name := range names {
			specs = append(specs, strategy.Spec{Type: name})
		}
	}

	reader, err := sqlitestore.NewReader(*dbPath)
	if err != nil {
		log.Fatalf("[replay] sqlite open failed: %v", err)
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Optional Redis publishing, same pipeline as the live monitor.
	var actionCh chan model.Action
	if !*noRedis {
		pub, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[replay] WARNING: redis init failed: %v (logging only)", err)
		} else {
			defer pub.Close()
			actionCh = make(chan model.Action, 1000)
			go pub.Run(ctx, actionCh)
		}
	}

	// One detector and one growing bar history per (ticker, strategy).
	detectors := make(map[string]*sigdetect.Detector)
	histories := make(map[string][]model.Bar)
	for _, t := range tickers {
		for _, spec := range specs {
			strat, err := strategy.New(spec)
			if err != nil {
				log.Fatalf("[replay] strategy %s: %v", spec.Type, err)
			}
			detectors[t+"|"+spec.Type] = sigdetect.NewDetector(strat, t)
		}
	}

	barCh := make(chan sqlitestore.TickerBar, 10000)
	replayer := replay.New(reader)
	go func() {
		if err := replayer.Run(ctx, tickers, *fromTS, *speed, barCh); err != nil {
			log.Printf("[replay] replay error: %v", err)
		}
		close(barCh)
	}()

	processed := 0
	emitted := 0
	for tb := range barCh {
		histories[tb.Ticker] = append(histories[tb.Ticker], tb.Bar)
		series := &model.Series{Ticker: tb.Ticker, Bars: histories[tb.Ticker]}
		processed++

		for key, det := range detectors {
			if !strings.HasPrefix(key, tb.Ticker+"|") {
				continue
			}
			act := det.OnBar(series)
			if act == nil {
				continue
			}
			emitted++
			log.Printf("[replay] %s %s %s @ %.2f (conf %.2f)",
				act.Ticker, act.Strategy, act.Signal, act.Price, act.Confidence)
			if actionCh != nil {
				select {
				case actionCh <- *act:
				default:
				}
			}
		}
	}

	log.Printf("[replay] done: %d bars, %d actions", processed, emitted)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
