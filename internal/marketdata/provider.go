// Package marketdata defines the price-series provider contract and ticker
// normalization shared by the concrete source adapters (csv, yahoo, feed).
package marketdata

import (
	"context"
	"errors"
	"time"

	"backtest-systemv1/internal/model"
)

// ErrNoData marks a fetch that returned no bars for the requested range.
var ErrNoData = errors.New("no market data for range")

// Provider assembles an ordered price series for one ticker. Any adapter
// that can produce (ts, open, high, low, close, volume) tuples in
// increasing-timestamp order satisfies the contract.
type Provider interface {
	History(ctx context.Context, ticker string, from, to time.Time) (*model.Series, error)
}

// NormalizeTicker maps exchange-specific shorthand to a fetchable symbol.
// Bare six-digit codes are KRX listings and get the .KS suffix.
func NormalizeTicker(ticker string) string {
	if len(ticker) == 6 && allDigits(ticker) {
		return ticker + ".KS"
	}
	return ticker
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
