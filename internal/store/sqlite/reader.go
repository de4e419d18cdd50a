package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for backtests and reporting.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadSeries loads all bars for a ticker after the given Unix timestamp
// (0 = all), ordered ascending, and validates the series contract.
func (r *Reader) ReadSeries(ticker string, afterTS int64) (*model.Series, error) {
	rows, err := r.db.Query(`
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND ts > ?
		ORDER BY ts ASC
	`, ticker, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		var volume sql.NullFloat64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		b.Volume = volume.Float64
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.NewSeries(ticker, bars)
}

// ReadTrades returns the trade journal for a ticker (empty ticker = all),
// in insertion order.
func (r *Reader) ReadTrades(ticker string) ([]model.TradeRecord, error) {
	rows, err := r.db.Query(`
		SELECT strategy, ticker, qty, entry_price, exit_price, entry_ts, exit_ts, pnl
		FROM trades
		WHERE ticker = ? OR ? = ''
		ORDER BY id ASC
	`, ticker, ticker)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		var entryTS, exitTS int64
		if err := rows.Scan(&t.Strategy, &t.Ticker, &t.Qty, &t.EntryPrice, &t.ExitPrice, &entryTS, &exitTS, &t.PnL); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		t.EntryTS = time.Unix(entryTS, 0).UTC()
		t.ExitTS = time.Unix(exitTS, 0).UTC()
		t.Holding = t.ExitTS.Sub(t.EntryTS)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ReadLatestReport loads the most recent stored report for a ticker and
// strategy. Returns nil when none exists.
func (r *Reader) ReadLatestReport(ticker, strategy string) (*backtest.Report, error) {
	var data string
	err := r.db.QueryRow(`
		SELECT data FROM reports
		WHERE ticker = ? AND strategy = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, ticker, strategy).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read report: %w", err)
	}

	var report backtest.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
