package strategy

import (
	"fmt"
	"math"

	"backtest-systemv1/internal/indicator"
	"backtest-systemv1/internal/model"
)

// maSpreadNorm is the relative fast/slow separation treated as full
// confidence for moving-average strategies (2% of the slow average).
const maSpreadNorm = 0.02

// maCrossover is the shared core of the moving-average relative-position
// strategies: BUY while the fast average sits above the slow one, SELL
// while below.
type maCrossover struct {
	name  string
	fastW int
	slowW int
}

func newMACrossover(name string, fastW, slowW int) (*maCrossover, error) {
	if fastW <= 0 || slowW <= 0 {
		return nil, fmt.Errorf("%w: %s windows must be positive (fast=%d slow=%d)", ErrInvalidParameter, name, fastW, slowW)
	}
	if fastW >= slowW {
		return nil, fmt.Errorf("%w: %s fast window %d must be < slow window %d", ErrInvalidParameter, name, fastW, slowW)
	}
	return &maCrossover{name: name, fastW: fastW, slowW: slowW}, nil
}

func (m *maCrossover) Name() string  { return m.name }
func (m *maCrossover) LookBack() int { return m.slowW }

func (m *maCrossover) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < m.LookBack() {
		return model.NoData()
	}
	closes := s.Closes()
	fast := last(indicator.SMA(closes, m.fastW))
	slow := last(indicator.SMA(closes, m.slowW))

	conf := spreadConfidence(math.Abs(fast-slow), slow, maSpreadNorm)
	switch {
	case fast > slow:
		return model.SignalState{Signal: model.SignalBuy, Confidence: conf}
	case fast < slow:
		return model.SignalState{Signal: model.SignalSell, Confidence: conf}
	default:
		return model.Hold()
	}
}

// NewTrendFollowing creates the classic trend-following strategy: short
// vs. long simple moving average relative position. Defaults 50/200.
func NewTrendFollowing(shortW, longW int) (Strategy, error) {
	return newMACrossover("TrendFollowing", shortW, longW)
}

// NewGoldenCross creates the golden/death cross strategy — the 50/200
// moving-average crossover by convention, windows configurable.
func NewGoldenCross(shortW, longW int) (Strategy, error) {
	return newMACrossover("GoldenCross", shortW, longW)
}

// NewDualMovingAverage creates the short look-back crossover variant for
// more frequent signals. Defaults 10/30.
func NewDualMovingAverage(fastW, slowW int) (Strategy, error) {
	return newMACrossover("DualMA", fastW, slowW)
}

// TripleMovingAverage requires three averages in strict alignment:
// short > medium > long for BUY, short < medium < long for SELL,
// anything else HOLD.
type TripleMovingAverage struct {
	shortW, mediumW, longW int
}

// NewTripleMovingAverage creates the triple moving-average strategy.
// Defaults 5/15/30.
func NewTripleMovingAverage(shortW, mediumW, longW int) (Strategy, error) {
	if shortW <= 0 {
		return nil, fmt.Errorf("%w: TripleMA short window must be positive, got %d", ErrInvalidParameter, shortW)
	}
	if !(shortW < mediumW && mediumW < longW) {
		return nil, fmt.Errorf("%w: TripleMA windows must be strictly increasing (got %d/%d/%d)",
			ErrInvalidParameter, shortW, mediumW, longW)
	}
	return &TripleMovingAverage{shortW: shortW, mediumW: mediumW, longW: longW}, nil
}

func (t *TripleMovingAverage) Name() string  { return "TripleMA" }
func (t *TripleMovingAverage) LookBack() int { return t.longW }

func (t *TripleMovingAverage) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < t.LookBack() {
		return model.NoData()
	}
	closes := s.Closes()
	short := last(indicator.SMA(closes, t.shortW))
	medium := last(indicator.SMA(closes, t.mediumW))
	long := last(indicator.SMA(closes, t.longW))

	switch {
	case short > medium && medium > long:
		conf := spreadConfidence(math.Min(short-medium, medium-long), long, maSpreadNorm/2)
		return model.SignalState{Signal: model.SignalBuy, Confidence: conf}
	case short < medium && medium < long:
		conf := spreadConfidence(math.Min(medium-short, long-medium), long, maSpreadNorm/2)
		return model.SignalState{Signal: model.SignalSell, Confidence: conf}
	default:
		return model.Hold()
	}
}

// spreadConfidence maps an average separation to [0,1] relative to norm,
// as a fraction of the reference average. A zero reference (degenerate
// price data) yields confidence 0 instead of dividing by it.
func spreadConfidence(spread, reference, norm float64) float64 {
	if reference == 0 {
		return 0
	}
	return clamp01(spread / math.Abs(reference) / norm)
}

// last returns the final entry of an indicator slice.
func last(values []float64) float64 { return values[len(values)-1] }

