package strategy

import (
	"fmt"

	"backtest-systemv1/internal/indicator"
	"backtest-systemv1/internal/model"
)

// RSI is the oversold/overbought strategy: BUY while RSI sits below the
// lower bound, SELL while above the upper bound, else HOLD.
// Defaults: period 14, lower 30, upper 70.
type RSI struct {
	period int
	lower  float64
	upper  float64
}

// NewRSI creates the RSI strategy.
func NewRSI(period int, lower, upper float64) (Strategy, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: RSI period must be positive, got %d", ErrInvalidParameter, period)
	}
	if lower <= 0 || upper >= 100 || lower >= upper {
		return nil, fmt.Errorf("%w: RSI bounds must satisfy 0 < lower < upper < 100 (got %.1f/%.1f)",
			ErrInvalidParameter, lower, upper)
	}
	return &RSI{period: period, lower: lower, upper: upper}, nil
}

func (r *RSI) Name() string  { return "RSI" }
func (r *RSI) LookBack() int { return r.period + 1 }

func (r *RSI) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < r.LookBack() {
		return model.NoData()
	}
	rsi := last(indicator.RSI(s.Closes(), r.period))
	switch {
	case rsi < r.lower:
		// Confidence grows as RSI sinks from the bound toward 0.
		return model.SignalState{Signal: model.SignalBuy, Confidence: clamp01((r.lower - rsi) / r.lower)}
	case rsi > r.upper:
		return model.SignalState{Signal: model.SignalSell, Confidence: clamp01((rsi - r.upper) / (100 - r.upper))}
	default:
		return model.Hold()
	}
}
