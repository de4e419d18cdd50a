package signal

import (
	"testing"
	"time"

	"backtest-systemv1/internal/model"
)

// scripted returns a fixed sequence of states, one per Evaluate call,
// repeating the final state once exhausted.
type scripted struct {
	states []model.SignalState
	calls  int
}

func (s *scripted) Name() string  { return "Scripted" }
func (s *scripted) LookBack() int { return 1 }

func (s *scripted) Evaluate(_ *model.Series) model.SignalState {
	i := s.calls
	if i >= len(s.states) {
		i = len(s.states) - 1
	}
	s.calls++
	return s.states[i]
}

func oneBar(close float64) *model.Series {
	return &model.Series{Ticker: "TEST", Bars: []model.Bar{{
		TS:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Close: close,
	}}}
}

func TestDetector_EmitsOnlyOnStateChange(t *testing.T) {
	strat := &scripted{states: []model.SignalState{
		{Signal: model.SignalHold},
		{Signal: model.SignalBuy, Confidence: 0.8},
		{Signal: model.SignalBuy, Confidence: 0.9},
		{Signal: model.SignalBuy, Confidence: 0.7},
		{Signal: model.SignalSell, Confidence: 0.5},
	}}
	det := NewDetector(strat, "TEST")

	var emitted []model.Action
	for i := 0; i < len(strat.states); i++ {
		if act := det.OnBar(oneBar(100 + float64(i))); act != nil {
			emitted = append(emitted, *act)
		}
	}

	// HOLD start, one BUY edge, one SELL edge.
	if len(emitted) != 2 {
		t.Fatalf("emitted %d actions, want 2", len(emitted))
	}
	if emitted[0].Signal != model.SignalBuy || emitted[1].Signal != model.SignalSell {
		t.Errorf("wrong edge sequence: %s, %s", emitted[0].Signal, emitted[1].Signal)
	}
	if emitted[0].Confidence != 0.8 {
		t.Errorf("BUY confidence %.2f, want the first edge's 0.8", emitted[0].Confidence)
	}
	if emitted[0].Price != 101 {
		t.Errorf("BUY price %.2f, want the triggering bar's close 101", emitted[0].Price)
	}
}

func TestDetector_TransitionToHoldEmits(t *testing.T) {
	strat := &scripted{states: []model.SignalState{
		{Signal: model.SignalBuy, Confidence: 1},
		{Signal: model.SignalHold},
	}}
	det := NewDetector(strat, "TEST")

	if act := det.OnBar(oneBar(100)); act == nil || act.Signal != model.SignalBuy {
		t.Fatal("expected BUY action on first bar")
	}
	act := det.OnBar(oneBar(101))
	if act == nil || act.Signal != model.SignalHold {
		t.Fatal("transition back to HOLD must emit an action")
	}
}

func TestDetector_InsufficientDataLeavesStateUntouched(t *testing.T) {
	strat := &scripted{states: []model.SignalState{
		{Signal: model.SignalBuy, Confidence: 1},
		model.NoData(),
		{Signal: model.SignalBuy, Confidence: 1},
	}}
	det := NewDetector(strat, "TEST")

	if act := det.OnBar(oneBar(100)); act == nil {
		t.Fatal("expected BUY action on first bar")
	}
	if act := det.OnBar(oneBar(101)); act != nil {
		t.Errorf("degraded evaluation must not emit, got %s", act.Signal)
	}
	if det.State() != model.SignalBuy {
		t.Errorf("state after degraded evaluation: %s, want BUY", det.State())
	}
	// Same BUY again after recovery: still no edge.
	if act := det.OnBar(oneBar(102)); act != nil {
		t.Errorf("unchanged state must not emit, got %s", act.Signal)
	}
}

func TestDetector_Reset(t *testing.T) {
	strat := &scripted{states: []model.SignalState{
		{Signal: model.SignalBuy, Confidence: 1},
	}}
	det := NewDetector(strat, "TEST")

	det.OnBar(oneBar(100))
	det.Reset()
	if det.State() != model.SignalHold {
		t.Errorf("state after reset: %s, want HOLD", det.State())
	}
	if act := det.OnBar(oneBar(101)); act == nil {
		t.Error("BUY after reset should emit again")
	}
}
