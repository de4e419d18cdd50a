// Package signal turns level-triggered strategy states into edge-triggered
// actions.
package signal

import (
	"backtest-systemv1/internal/model"
	"backtest-systemv1/internal/strategy"
)

// Detector wraps one strategy and remembers its last emitted state. An
// Action comes out only when the state changes, so a strategy reporting BUY
// for ten straight bars produces exactly one Action. Detectors over
// different (ticker, strategy) pairs are independent; actions are never
// merged across detectors.
//
// Not safe for concurrent use; each goroutine owns its detectors.
type Detector struct {
	strat  strategy.Strategy
	ticker string
	prev   model.Signal
}

// NewDetector creates a detector in the HOLD state.
func NewDetector(strat strategy.Strategy, ticker string) *Detector {
	return &Detector{strat: strat, ticker: ticker, prev: model.SignalHold}
}

// Strategy returns the wrapped strategy.
func (d *Detector) Strategy() strategy.Strategy { return d.strat }

// State returns the last committed signal state.
func (d *Detector) State() model.Signal { return d.prev }

// OnBar evaluates the series through the wrapped strategy and returns an
// Action if the state changed, nil otherwise. A series still inside the
// warm-up window leaves the stored state untouched.
func (d *Detector) OnBar(s *model.Series) *model.Action {
	st := d.strat.Evaluate(s)
	if st.InsufficientData {
		return nil
	}
	if st.Signal == d.prev {
		return nil
	}
	d.prev = st.Signal

	bar := s.Last()
	return &model.Action{
		Strategy:   d.strat.Name(),
		Ticker:     d.ticker,
		Signal:     st.Signal,
		Price:      bar.Close,
		TS:         bar.TS,
		Confidence: st.Confidence,
	}
}

// Reset returns the detector to its initial HOLD state.
func (d *Detector) Reset() { d.prev = model.SignalHold }
