// cmd/paper subscribes to the live signal stream and simulates fills for
// every emitted action, journaling closed round trips to SQLite. Run it
// next to cmd/monitor to paper-trade the monitored strategies.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"backtest-systemv1/config"
	"backtest-systemv1/internal/execution"
	"backtest-systemv1/internal/model"
	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[paper] starting...")

	allocation := flag.Float64("allocation", 10000, "Notional per entry")
	slippageBps := flag.Float64("slippage-bps", 5, "Simulated slippage in basis points")
	noJournal := flag.Bool("no-journal", false, "Keep trades in memory only")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber, err := redisstore.NewSubscriber(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[paper] redis subscriber failed: %v", err)
	}
	defer subscriber.Close()

	var journal *sqlitestore.Writer
	if !*noJournal {
		os.MkdirAll("data", 0o755)
		journal, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Fatalf("[paper] sqlite init failed: %v", err)
		}
		defer journal.Close()
	}

	trader := execution.New(execution.Config{
		Allocation:  *allocation,
		SlippageBps: *slippageBps,
	}, journal)

	actionCh := make(chan model.Action, 1000)
	go func() {
		if err := subscriber.SubscribeActions(ctx, actionCh); err != nil {
			log.Printf("[paper] subscribe error: %v", err)
		}
		close(actionCh)
	}()

	go trader.Run(ctx, actionCh)
	log.Println("[paper] consuming signal stream")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[paper] shutting down...")
	cancel()

	fills := trader.Fills()
	open := trader.OpenPositions()
	log.Printf("[paper] session summary: %d fills, %d open positions, realized pnl %.2f",
		len(fills), len(open), trader.RealizedPnL())
	for _, pos := range open {
		log.Printf("[paper]   open %s/%s: %.4f @ %.2f", pos.Ticker, pos.Strategy, pos.Qty, pos.EntryPrice)
	}
}
