// cmd/backtest runs strategies over historical bars from a CSV file or the
// SQLite store and prints a performance report per strategy.
//
// Usage:
//
//	go run ./cmd/backtest --csv=data/AAPL.csv --ticker=AAPL --strategy=RSI,MACD
//	go run ./cmd/backtest --ticker=AAPL --db=data/bars.db --save
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"backtest-systemv1/internal/backtest"
	csvdata "backtest-systemv1/internal/marketdata/csv"
	"backtest-systemv1/internal/model"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
	"backtest-systemv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	csvPath := flag.String("csv", "", "Path to a CSV file of daily bars (overrides --db)")
	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	ticker := flag.String("ticker", "", "Ticker symbol (required)")
	strategyCfg := flag.String("strategy", "", "Comma-separated strategy types (default: all)")
	capital := flag.Float64("capital", 100000, "Initial capital")
	fraction := flag.Float64("fraction", 0.10, "Fraction of equity per entry")
	confWeighted := flag.Bool("confidence-weighted", false, "Scale position size by signal confidence")
	leaveOpen := flag.Bool("leave-open", false, "Leave a final open position out of the ledger instead of force-closing")
	save := flag.Bool("save", false, "Persist trades and reports to SQLite")
	flag.Parse()

	if *ticker == "" {
		log.Fatal("[backtest] --ticker is required")
	}

	series, err := loadSeries(*csvPath, *dbPath, *ticker)
	if err != nil {
		log.Fatalf("[backtest] load series failed: %v", err)
	}
	log.Printf("[backtest] loaded %d bars for %s", series.Len(), series.Ticker)

	specs := parseStrategySpecs(*strategyCfg)
	if len(specs) == 0 {
		log.Fatal("[backtest] no valid strategies specified")
	}

	cfg := backtest.Config{
		InitialCapital:     *capital,
		SizingFraction:     *fraction,
		ConfidenceWeighted: *confWeighted,
		LeaveOpenAtEnd:     *leaveOpen,
	}

	var writer *sqlitestore.Writer
	if *save {
		writer, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		defer writer.Close()
	}

	for _, spec := range specs {
		strat, err := strategy.New(spec)
		if err != nil {
			log.Printf("[backtest] skipping %s: %v", spec.Type, err)
			continue
		}

		result, err := backtest.Run(series, strat, cfg)
		if err != nil {
			log.Printf("[backtest] %s run failed: %v", strat.Name(), err)
			continue
		}

		printSummary(result, *capital)

		if writer != nil {
			if err := writer.SaveTrades(result.Trades); err != nil {
				log.Printf("[backtest] save trades failed: %v", err)
			}
			if err := writer.SaveReport(result.Ticker, result.Strategy, result.Report); err != nil {
				log.Printf("[backtest] save report failed: %v", err)
			}
		}
	}
}

func loadSeries(csvPath, dbPath, ticker string) (*model.Series, error) {
	if csvPath != "" {
		return csvdata.Load(csvPath, ticker)
	}
	reader, err := sqlitestore.NewReader(dbPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ReadSeries(ticker, 0)
}

func parseStrategySpecs(s string) []strategy.Spec {
	if strings.TrimSpace(s) == "" {
		return strategy.DefaultSpecs()
	}
	var specs []strategy.Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		specs = append(specs, strategy.Spec{Type: part})
	}
	return specs
}

func printSummary(r *backtest.Result, capital float64) {
	final := capital
	if len(r.Equity) > 0 {
		final = r.Equity[len(r.Equity)-1]
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Printf("║  %-12s on %-26s ║\n", r.Strategy, r.Ticker)
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Printf("║  Final equity:     %-25.2f ║\n", final)
	fmt.Printf("║  Total return %%:   %-25s ║\n", r.Report.TotalReturnPct)
	fmt.Printf("║  Trades:           %-25d ║\n", r.Report.NumTrades)
	fmt.Printf("║  Win rate:         %-25s ║\n", r.Report.WinRate)
	fmt.Printf("║  Avg win:          %-25s ║\n", r.Report.AvgWin)
	fmt.Printf("║  Avg loss:         %-25s ║\n", r.Report.AvgLoss)
	fmt.Printf("║  Profit factor:    %-25s ║\n", r.Report.ProfitFactor)
	fmt.Printf("║  Max drawdown %%:   %-25s ║\n", r.Report.MaxDrawdownPct)
	fmt.Printf("║  Sharpe:           %-25s ║\n", r.Report.Sharpe)
	fmt.Printf("║  Close policy:     %-25s ║\n", truncate(r.Report.ClosePolicy, 25))
	fmt.Println("╚══════════════════════════════════════════════╝")

	if r.Open != nil {
		fmt.Printf("  open position: %.4f units @ %.2f\n", r.Open.Qty, r.Open.EntryPrice)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
