package model

import (
	"encoding/json"
	"time"
)

// Signal is the directional state a strategy reports for the current bar.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// SignalState is the full evaluation result for one bar: direction plus a
// confidence score in [0,1]. InsufficientData is set when the series is
// shorter than the strategy's look-back; the signal is then HOLD with
// confidence 0.
type SignalState struct {
	Signal           Signal  `json:"signal"`
	Confidence       float64 `json:"confidence"`
	InsufficientData bool    `json:"insufficient_data,omitempty"`
}

// Hold is the neutral state: HOLD with zero confidence.
func Hold() SignalState {
	return SignalState{Signal: SignalHold}
}

// NoData is the degraded state for a too-short series.
func NoData() SignalState {
	return SignalState{Signal: SignalHold, InsufficientData: true}
}

// Action is emitted by a signal detector only when the strategy's state
// changes. It is consumed once by whichever path receives it (alert
// dispatch or the backtest simulator); actions from different strategies
// on the same bar are never merged.
type Action struct {
	Strategy   string    `json:"strategy"`
	Ticker     string    `json:"ticker"`
	Signal     Signal    `json:"signal"`
	Price      float64   `json:"price"`
	TS         time.Time `json:"ts"`
	Confidence float64   `json:"confidence"`
}

// JSON returns the JSON-encoded action (ignoring errors for hot-path usage).
func (a *Action) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}
