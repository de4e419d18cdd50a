package strategy

import (
	"fmt"

	"backtest-systemv1/internal/indicator"
	"backtest-systemv1/internal/model"
)

// breakoutNorm is the fractional penetration beyond the breakout level
// treated as full confidence (2%).
const breakoutNorm = 0.02

// Breakout reports BUY while the close exceeds the rolling high of the
// prior window bars (excluding the current bar) and SELL while it sits
// below the prior rolling low. Default window 20.
type Breakout struct {
	window int
}

// NewBreakout creates the breakout strategy.
func NewBreakout(window int) (Strategy, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: Breakout window must be positive, got %d", ErrInvalidParameter, window)
	}
	return &Breakout{window: window}, nil
}

func (b *Breakout) Name() string { return "Breakout" }

// LookBack needs the breakout window plus the current bar.
func (b *Breakout) LookBack() int { return b.window + 1 }

func (b *Breakout) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < b.LookBack() {
		return model.NoData()
	}
	n := s.Len()
	// Levels from the window ending at the previous bar.
	priorHigh := indicator.RollingMax(s.Highs(), b.window)[n-2]
	priorLow := indicator.RollingMin(s.Lows(), b.window)[n-2]
	price := s.Last().Close

	switch {
	case price > priorHigh:
		return model.SignalState{Signal: model.SignalBuy, Confidence: clamp01((price - priorHigh) / priorHigh / breakoutNorm)}
	case price < priorLow:
		return model.SignalState{Signal: model.SignalSell, Confidence: clamp01((priorLow - price) / priorLow / breakoutNorm)}
	default:
		return model.Hold()
	}
}
