package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching for
// bar inserts, plus direct inserts for trades and reports.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			ticker  TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  REAL,
			PRIMARY KEY (ticker, ts)
		);

		CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy     TEXT    NOT NULL,
			ticker       TEXT    NOT NULL,
			qty          REAL    NOT NULL,
			entry_price  REAL    NOT NULL,
			exit_price   REAL    NOT NULL,
			entry_ts     INTEGER NOT NULL,
			exit_ts      INTEGER NOT NULL,
			pnl          REAL    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT    NOT NULL,
			strategy   TEXT    NOT NULL,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE TABLE IF NOT EXISTS monitor_configs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT    NOT NULL,
			strategy   TEXT    NOT NULL,
			params     TEXT    NOT NULL DEFAULT '{}',
			status     TEXT    NOT NULL DEFAULT 'active',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE (ticker, strategy)
		);
	`)
	return err
}

// TickerBar pairs a bar with its ticker for channel transport.
type TickerBar struct {
	Ticker string
	Bar    model.Bar
}

// Run reads bars from barCh and inserts them in batched transactions.
// Flushes every batchSize bars OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or barCh is closed.
func (w *Writer) Run(ctx context.Context, barCh <-chan TickerBar) {
	batch := make([]TickerBar, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d bars in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case tb, ok := <-barCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, tb)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (w *Writer) insertBatch(bars []TickerBar) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (ticker, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, tb := range bars {
		b := tb.Bar
		if _, err := stmt.Exec(tb.Ticker, b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveSeries inserts all bars of a series in one transaction. Used by the
// import command and the monitor's persistence path.
func (w *Writer) SaveSeries(s *model.Series) error {
	batch := make([]TickerBar, len(s.Bars))
	for i, b := range s.Bars {
		batch[i] = TickerBar{Ticker: s.Ticker, Bar: b}
	}
	return w.insertBatch(batch)
}

// GetLastTimestamp returns the last stored bar timestamp for a ticker.
// Returns 0 if no bars exist.
func (w *Writer) GetLastTimestamp(ticker string) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(`SELECT MAX(ts) FROM bars WHERE ticker = ?`, ticker).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveTrades appends closed trades to the journal in one transaction.
func (w *Writer) SaveTrades(trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO trades (strategy, ticker, qty, entry_price, exit_price, entry_ts, exit_ts, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(t.Strategy, t.Ticker, t.Qty, t.EntryPrice, t.ExitPrice, t.EntryTS.Unix(), t.ExitTS.Unix(), t.PnL)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveReport persists a performance report as JSON for later inspection.
func (w *Writer) SaveReport(ticker, strategy string, report backtest.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.db.Exec(`INSERT INTO reports (ticker, strategy, data) VALUES (?, ?, ?)`,
		ticker, strategy, string(data))
	if err != nil {
		return fmt.Errorf("sqlite insert report: %w", err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
