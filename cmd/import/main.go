// cmd/import loads daily bars from a CSV file into the SQLite store so
// cmd/backtest and cmd/replay can run against them.
//
// Usage:
//
//	go run ./cmd/import --csv=data/AAPL.csv --ticker=AAPL --db=data/bars.db
package main

import (
	"flag"
	"log"

	csvdata "backtest-systemv1/internal/marketdata/csv"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	csvPath := flag.String("csv", "", "Path to CSV file (required)")
	ticker := flag.String("ticker", "", "Ticker symbol (required)")
	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	flag.Parse()

	if *csvPath == "" || *ticker == "" {
		log.Fatal("[import] --csv and --ticker are required")
	}

	series, err := csvdata.Load(*csvPath, *ticker)
	if err != nil {
		log.Fatalf("[import] load failed: %v", err)
	}

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[import] sqlite open failed: %v", err)
	}
	defer writer.Close()

	if err := writer.SaveSeries(series); err != nil {
		log.Fatalf("[import] save failed: %v", err)
	}

	log.Printf("[import] imported %d bars for %s into %s", series.Len(), series.Ticker, *dbPath)
}
