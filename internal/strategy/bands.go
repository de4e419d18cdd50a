package strategy

import (
	"fmt"

	"backtest-systemv1/internal/indicator"
	"backtest-systemv1/internal/model"
)

// BollingerBands is the band mean-reversion strategy: BUY while price sits
// below the lower band, SELL while above the upper band, else HOLD.
// Defaults: window 20, k 2.
type BollingerBands struct {
	window int
	k      float64
}

// NewBollingerBands creates the Bollinger Bands strategy.
func NewBollingerBands(window int, k float64) (Strategy, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: Bollinger window must be positive, got %d", ErrInvalidParameter, window)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: Bollinger std multiplier must be positive, got %.2f", ErrInvalidParameter, k)
	}
	return &BollingerBands{window: window, k: k}, nil
}

func (b *BollingerBands) Name() string  { return "Bollinger" }
func (b *BollingerBands) LookBack() int { return b.window }

func (b *BollingerBands) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < b.LookBack() {
		return model.NoData()
	}
	_, upper, lower := indicator.Bollinger(s.Closes(), b.window, b.k)
	price := s.Last().Close
	up, lo := last(upper), last(lower)
	width := up - lo

	switch {
	case price < lo:
		conf := 1.0
		if width > 0 {
			conf = clamp01((lo - price) / width)
		}
		return model.SignalState{Signal: model.SignalBuy, Confidence: conf}
	case price > up:
		conf := 1.0
		if width > 0 {
			conf = clamp01((price - up) / width)
		}
		return model.SignalState{Signal: model.SignalSell, Confidence: conf}
	default:
		return model.Hold()
	}
}

// MeanReversion scores the z-score of price against the rolling mean and
// population standard deviation: BUY below -threshold, SELL above
// +threshold. Defaults: window 20, threshold 2.
type MeanReversion struct {
	window    int
	threshold float64
}

// NewMeanReversion creates the z-score mean-reversion strategy.
func NewMeanReversion(window int, threshold float64) (Strategy, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: MeanReversion window must be positive, got %d", ErrInvalidParameter, window)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: MeanReversion threshold must be positive, got %.2f", ErrInvalidParameter, threshold)
	}
	return &MeanReversion{window: window, threshold: threshold}, nil
}

func (m *MeanReversion) Name() string  { return "MeanReversion" }
func (m *MeanReversion) LookBack() int { return m.window }

func (m *MeanReversion) Evaluate(s *model.Series) model.SignalState {
	if s.Len() < m.LookBack() {
		return model.NoData()
	}
	closes := s.Closes()
	mean := last(indicator.SMA(closes, m.window))
	std := last(indicator.StdDev(closes, m.window))
	if std == 0 {
		// Flat window — no deviation to revert from.
		return model.Hold()
	}
	z := (s.Last().Close - mean) / std
	switch {
	case z < -m.threshold:
		return model.SignalState{Signal: model.SignalBuy, Confidence: clamp01((-z - m.threshold) / m.threshold)}
	case z > m.threshold:
		return model.SignalState{Signal: model.SignalSell, Confidence: clamp01((z - m.threshold) / m.threshold)}
	default:
		return model.Hold()
	}
}
