// Package replay emits stored historical bars at configurable speed, used
// to exercise the monitor pipeline without a live data source.
package replay

import (
	"context"
	"log"
	"time"

	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

// Replayer reads historical bars from SQLite and replays them at a
// configurable speed multiplier.
type Replayer struct {
	reader *sqlitestore.Reader
}

// New creates a Replayer backed by a SQLite reader.
func New(reader *sqlitestore.Reader) *Replayer {
	return &Replayer{reader: reader}
}

// Run replays all bars for the given tickers, emitting them into outCh.
// speed controls the playback rate: 1.0 = real-time, 10.0 = 10x, 0 = as fast as possible.
// fromTS filters bars to those after this Unix timestamp (0 = all).
func (r *Replayer) Run(ctx context.Context, tickers []string, fromTS int64, speed float64, outCh chan<- sqlitestore.TickerBar) error {
	// Collect all bars across tickers, sorted by time
	var all []sqlitestore.TickerBar
	for _, ticker := range tickers {
		series, err := r.reader.ReadSeries(ticker, fromTS)
		if err != nil {
			log.Printf("[replay] skipping %s: %v", ticker, err)
			continue
		}
		for _, b := range series.Bars {
			all = append(all, sqlitestore.TickerBar{Ticker: ticker, Bar: b})
		}
	}

	if len(all) == 0 {
		log.Println("[replay] no bars found in SQLite")
		return nil
	}

	// Sort by timestamp (they are interleaved across tickers)
	sortBars(all)

	log.Printf("[replay] loaded %d bars across %d tickers, speed=%.1fx", len(all), len(tickers), speed)

	var prevTS time.Time
	emitted := 0

	for _, tb := range all {
		select {
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d bars", emitted)
			return ctx.Err()
		default:
		}

		// Simulate time gaps between bars
		if speed > 0 && !prevTS.IsZero() {
			gap := tb.Bar.TS.Sub(prevTS)
			if gap > 0 {
				scaledGap := time.Duration(float64(gap) / speed)
				// Cap max sleep to avoid very long waits
				if scaledGap > 5*time.Second {
					scaledGap = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaledGap):
				}
			}
		}
		prevTS = tb.Bar.TS

		outCh <- tb
		emitted++
	}

	log.Printf("[replay] completed: %d bars replayed", emitted)
	return nil
}

// sortBars sorts bars by timestamp (insertion sort, stable and fine for replay sizes).
func sortBars(bars []sqlitestore.TickerBar) {
	for i := 1; i < len(bars); i++ {
		for j := i; j > 0 && bars[j].Bar.TS.Before(bars[j-1].Bar.TS); j-- {
			bars[j], bars[j-1] = bars[j-1], bars[j]
		}
	}
}
