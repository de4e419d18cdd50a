// Package strategy implements the trading rule variants evaluated by the
// engine.
//
// A Strategy maps a price series to a directional SignalState for the
// series' last bar. States are level-triggered (a strategy keeps reporting
// BUY while its condition holds); the signal detector turns them into
// edge-triggered actions. The variant set is closed and dispatched through
// the Spec factory — strategies are not runtime-extensible.
package strategy

import (
	"errors"
	"math"

	"backtest-systemv1/internal/model"
)

// ErrInvalidParameter marks a strategy configured with a nonsensical
// parameter. Construction fails fast; Evaluate never validates.
var ErrInvalidParameter = errors.New("invalid strategy parameter")

// Strategy evaluates a price series and reports the signal state for the
// last bar. Implementations are pure: same series, same result.
type Strategy interface {
	// Name returns the strategy identifier carried on emitted actions.
	Name() string

	// LookBack returns the minimum number of bars required before
	// Evaluate can produce a meaningful signal.
	LookBack() int

	// Evaluate returns the signal state for the series' last bar.
	// A series shorter than LookBack yields HOLD with confidence 0 and
	// the insufficient-data flag set — never an error.
	Evaluate(s *model.Series) model.SignalState
}

// clamp01 clamps a confidence score into [0,1]. NaN (degenerate price
// data hitting a zero denominator upstream) maps to 0 so it can never
// reach an emitted action.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
