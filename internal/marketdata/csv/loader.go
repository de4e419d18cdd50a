// Package csv loads price series from OHLCV CSV files, the offline input
// for backtest runs and the import command.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"backtest-systemv1/internal/model"
)

// Expected header columns, case-insensitive. Volume is optional.
var required = []string{"date", "open", "high", "low", "close"}

// Load reads a CSV file into a validated series for the given ticker.
// The first row must be a header naming at least Date,Open,High,Low,Close;
// dates are "2006-01-02" or RFC3339.
func Load(path, ticker string) (*model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv open: %w", err)
	}
	defer f.Close()
	return Parse(f, ticker)
}

// Parse reads CSV rows from r into a validated series.
func Parse(r io.Reader, ticker string) (*model.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []model.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bar, err := parseBar(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	return model.NewSeries(ticker, bars)
}

type columns struct {
	date, open, high, low, close, volume int
}

func mapColumns(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return columns{}, fmt.Errorf("csv header missing column %q", name)
		}
	}
	c := columns{
		date:   idx["date"],
		open:   idx["open"],
		high:   idx["high"],
		low:    idx["low"],
		close:  idx["close"],
		volume: -1,
	}
	if v, ok := idx["volume"]; ok {
		c.volume = v
	}
	return c, nil
}

func parseBar(rec []string, c columns) (model.Bar, error) {
	ts, err := parseDate(rec[c.date])
	if err != nil {
		return model.Bar{}, err
	}
	var b model.Bar
	b.TS = ts
	if b.Open, err = strconv.ParseFloat(rec[c.open], 64); err != nil {
		return model.Bar{}, fmt.Errorf("open: %w", err)
	}
	if b.High, err = strconv.ParseFloat(rec[c.high], 64); err != nil {
		return model.Bar{}, fmt.Errorf("high: %w", err)
	}
	if b.Low, err = strconv.ParseFloat(rec[c.low], 64); err != nil {
		return model.Bar{}, fmt.Errorf("low: %w", err)
	}
	if b.Close, err = strconv.ParseFloat(rec[c.close], 64); err != nil {
		return model.Bar{}, fmt.Errorf("close: %w", err)
	}
	if c.volume >= 0 && rec[c.volume] != "" {
		if b.Volume, err = strconv.ParseFloat(rec[c.volume], 64); err != nil {
			return model.Bar{}, fmt.Errorf("volume: %w", err)
		}
	}
	return b, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t.UTC(), nil
}
