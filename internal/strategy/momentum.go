package strategy

import (
	"fmt"

	"backtest-systemv1/internal/indicator"
	"backtest-systemv1/internal/model"
)

// Momentum reports BUY while the N-bar fractional price change exceeds the
// threshold and SELL while it falls below the negative threshold.
// Defaults: period 14, threshold 0.02 (2%).
type Momentum struct {
	period    int
	threshold float64
}

// NewMomentum creates the momentum strategy.
func NewMomentum(period int, threshold float64) (Strategy, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: Momentum period must be positive, got %d", ErrInvalidParameter, period)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: Momentum threshold must be positive, got %.4f", ErrInvalidParameter, threshold)
	}
	return &Momentum{period: period, threshold: threshold}, nil
}

func (m *Momentum) Name() string  { return "Momentum" }
func (m *Momentum) LookBack() int { return m.period + 1 }

func (m *Momentum) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < m.LookBack() {
		return model.NoData()
	}
	mom := last(indicator.Momentum(s.Closes(), m.period))
	if !indicator.Defined(mom) {
		return model.Hold()
	}
	switch {
	case mom > m.threshold:
		return model.SignalState{Signal: model.SignalBuy, Confidence: clamp01((mom - m.threshold) / m.threshold)}
	case mom < -m.threshold:
		return model.SignalState{Signal: model.SignalSell, Confidence: clamp01((-mom - m.threshold) / m.threshold)}
	default:
		return model.Hold()
	}
}
