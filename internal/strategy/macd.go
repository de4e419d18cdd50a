package strategy

import (
	"fmt"
	"math"

	"backtest-systemv1/internal/indicator"
	"backtest-systemv1/internal/model"
)

// macdHistNorm is the histogram magnitude, as a fraction of price, treated
// as full confidence (0.5% of the last close).
const macdHistNorm = 0.005

// MACD reports BUY while the MACD line sits above its signal line and SELL
// while below; the detector turns the crossings into actions.
// Defaults 12/26/9.
type MACD struct {
	fast, slow, signal int
}

// NewMACD creates the MACD crossover strategy.
func NewMACD(fast, slow, signal int) (Strategy, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("%w: MACD periods must be positive (got %d/%d/%d)", ErrInvalidParameter, fast, slow, signal)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: MACD fast period %d must be < slow period %d", ErrInvalidParameter, fast, slow)
	}
	return &MACD{fast: fast, slow: slow, signal: signal}, nil
}

func (m *MACD) Name() string { return "MACD" }

// LookBack covers the slow EMA seed plus the signal EMA seed over the line.
func (m *MACD) LookBack() int { return m.slow + m.signal - 1 }

func (m *MACD) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < m.LookBack() {
		return model.NoData()
	}
	_, _, hist := indicator.MACD(s.Closes(), m.fast, m.slow, m.signal)
	h := last(hist)
	conf := clamp01(math.Abs(h) / (s.Last().Close * macdHistNorm))
	switch {
	case h > 0:
		return model.SignalState{Signal: model.SignalBuy, Confidence: conf}
	case h < 0:
		return model.SignalState{Signal: model.SignalSell, Confidence: conf}
	default:
		return model.Hold()
	}
}
