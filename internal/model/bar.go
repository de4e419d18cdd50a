// Package model defines the core data types shared across the engine:
// price bars, series, signals, actions, positions, and trade records.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSeries marks a series that violates the input contract
// (empty, out-of-order or duplicate timestamps).
var ErrInvalidSeries = errors.New("invalid series")

// Bar is one OHLCV observation for a fixed time interval.
type Bar struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered sequence of bars for a single ticker.
// Timestamps must be strictly increasing; bars are immutable once appended.
type Series struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// NewSeries builds a Series and validates the bar ordering contract.
func NewSeries(ticker string, bars []Bar) (*Series, error) {
	s := &Series{Ticker: ticker, Bars: bars}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the series input contract: non-empty, strictly increasing
// timestamps, no duplicates. Called before any computation proceeds.
func (s *Series) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("%w: empty series for %q", ErrInvalidSeries, s.Ticker)
	}
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].TS.After(s.Bars[i-1].TS) {
			return fmt.Errorf("%w: non-increasing timestamp at index %d (%s <= %s)",
				ErrInvalidSeries, i, s.Bars[i].TS.Format(time.RFC3339), s.Bars[i-1].TS.Format(time.RFC3339))
		}
	}
	return nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Last returns the most recent bar. Panics on an empty series — callers
// must check Len first.
func (s *Series) Last() Bar { return s.Bars[len(s.Bars)-1] }

// Prefix returns a view of the series up to and including index i.
// The underlying bars are shared, not copied.
func (s *Series) Prefix(i int) *Series {
	return &Series{Ticker: s.Ticker, Bars: s.Bars[:i+1]}
}

// Closes extracts the closing-price sub-sequence.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high-price sub-sequence.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low-price sub-sequence.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}
