package strategy

import (
	"fmt"
)

// Spec names a strategy variant and its parameters. Unknown params are
// ignored; missing params fall back to the variant's defaults.
type Spec struct {
	Type   string             `json:"type"`
	Params map[string]float64 `json:"params,omitempty"`
}

func (s Spec) num(key string, def float64) float64 {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

func (s Spec) window(key string, def int) int {
	return int(s.num(key, float64(def)))
}

// New builds the strategy a Spec describes. Unknown types and invalid
// parameters return an error wrapping ErrInvalidParameter.
func New(spec Spec) (Strategy, error) {
	switch spec.Type {
	case "TrendFollowing":
		return NewTrendFollowing(spec.window("short", 50), spec.window("long", 200))
	case "RSI":
		return NewRSI(spec.window("period", 14), spec.num("lower", 30), spec.num("upper", 70))
	case "MACD":
		return NewMACD(spec.window("fast", 12), spec.window("slow", 26), spec.window("signal", 9))
	case "Bollinger":
		return NewBollingerBands(spec.window("window", 20), spec.num("k", 2))
	case "MeanReversion":
		return NewMeanReversion(spec.window("window", 20), spec.num("threshold", 2))
	case "GoldenCross":
		return NewGoldenCross(spec.window("short", 50), spec.window("long", 200))
	case "Breakout":
		return NewBreakout(spec.window("window", 20))
	case "DualMA":
		return NewDualMovingAverage(spec.window("fast", 10), spec.window("slow", 30))
	case "Momentum":
		return NewMomentum(spec.window("period", 14), spec.num("threshold", 0.02))
	case "TripleMA":
		return NewTripleMovingAverage(spec.window("short", 5), spec.window("medium", 15), spec.window("long", 30))
	default:
		return nil, fmt.Errorf("%w: unknown strategy type %q", ErrInvalidParameter, spec.Type)
	}
}

// DefaultSpecs returns every strategy variant with its default parameters.
func DefaultSpecs() []Spec {
	return []Spec{
		{Type: "TrendFollowing"},
		{Type: "RSI"},
		{Type: "MACD"},
		{Type: "Bollinger"},
		{Type: "MeanReversion"},
		{Type: "GoldenCross"},
		{Type: "Breakout"},
		{Type: "DualMA"},
		{Type: "Momentum"},
		{Type: "TripleMA"},
	}
}
