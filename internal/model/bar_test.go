package model

import (
	"errors"
	"testing"
	"time"
)

func barsAt(days ...int) []Bar {
	base := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	out := make([]Bar, len(days))
	for i, d := range days {
		out[i] = Bar{TS: base.AddDate(0, 0, d), Close: 100 + float64(i)}
	}
	return out
}

func TestSeriesValidate(t *testing.T) {
	if _, err := NewSeries("OK", barsAt(0, 1, 2)); err != nil {
		t.Errorf("strictly increasing timestamps should validate: %v", err)
	}
	if _, err := NewSeries("EMPTY", nil); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("empty series: want ErrInvalidSeries, got %v", err)
	}
	if _, err := NewSeries("DUP", barsAt(0, 1, 1)); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("duplicate timestamp: want ErrInvalidSeries, got %v", err)
	}
	if _, err := NewSeries("OOO", barsAt(0, 2, 1)); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("out-of-order timestamp: want ErrInvalidSeries, got %v", err)
	}
}

func TestSeriesPrefix_SharesBars(t *testing.T) {
	s := &Series{Ticker: "TEST", Bars: barsAt(0, 1, 2, 3)}

	p := s.Prefix(1)
	if p.Len() != 2 {
		t.Fatalf("Prefix(1) length %d, want 2 (inclusive)", p.Len())
	}
	if p.Last().TS != s.Bars[1].TS {
		t.Error("Prefix(1) must end at index 1")
	}
	if p.Ticker != s.Ticker {
		t.Error("prefix view should carry the ticker")
	}
	if &p.Bars[0] != &s.Bars[0] {
		t.Error("prefix must be a view over the same backing array")
	}
}

func TestSeriesExtracts(t *testing.T) {
	s := &Series{Ticker: "TEST", Bars: []Bar{
		{TS: time.Unix(1, 0), Open: 1, High: 3, Low: 0.5, Close: 2},
		{TS: time.Unix(2, 0), Open: 2, High: 4, Low: 1.5, Close: 3},
	}}

	closes := s.Closes()
	if closes[0] != 2 || closes[1] != 3 {
		t.Errorf("Closes() = %v", closes)
	}
	highs := s.Highs()
	if highs[0] != 3 || highs[1] != 4 {
		t.Errorf("Highs() = %v", highs)
	}
	lows := s.Lows()
	if lows[0] != 0.5 || lows[1] != 1.5 {
		t.Errorf("Lows() = %v", lows)
	}
}
