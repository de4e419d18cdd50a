package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"backtest-systemv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func series(closes ...float64) *model.Series {
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			TS:    base.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return &model.Series{Ticker: "TEST", Bars: bars}
}

func mustBuild(t *testing.T, strat Strategy, err error) Strategy {
	t.Helper()
	if err != nil {
		t.Fatalf("strategy construction failed: %v", err)
	}
	return strat
}

func assertSignal(t *testing.T, label string, got model.SignalState, want model.Signal) {
	t.Helper()
	if got.InsufficientData {
		t.Fatalf("%s: unexpected insufficient data", label)
	}
	if got.Signal != want {
		t.Errorf("%s: got %s, want %s", label, got.Signal, want)
	}
	if got.Confidence < 0 || got.Confidence > 1 {
		t.Errorf("%s: confidence %.4f outside [0,1]", label, got.Confidence)
	}
}

func assertConf(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("%s: confidence %.6f, want %.6f", label, got, want)
	}
}

// ────────────────────────────────────────────────────────────
// Moving-average strategies
// ────────────────────────────────────────────────────────────

func TestTrendFollowing_RisingSeries_Buys(t *testing.T) {
	// closes 100,102,104,106: SMA(2)=105, SMA(3)=104 → fast above slow.
	s, serr := NewTrendFollowing(2, 3)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 102, 104, 106))
	assertSignal(t, "TrendFollowing rising", st, model.SignalBuy)
	// |105-104|/104/0.02 = 0.480769
	assertConf(t, "TrendFollowing confidence", st.Confidence, 0.480769)
}

func TestTrendFollowing_FallingSeries_Sells(t *testing.T) {
	s, serr := NewTrendFollowing(2, 3)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(106, 104, 102, 100))
	assertSignal(t, "TrendFollowing falling", st, model.SignalSell)
}

func TestTrendFollowing_InsufficientData(t *testing.T) {
	s, serr := NewTrendFollowing(2, 3)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 102))
	if !st.InsufficientData {
		t.Error("expected insufficient data for series shorter than look-back")
	}
	if st.Signal != model.SignalHold {
		t.Errorf("degraded state should be HOLD, got %s", st.Signal)
	}
}

func TestMACrossover_RejectsBadWindows(t *testing.T) {
	cases := []struct {
		fast, slow int
	}{
		{0, 10},
		{10, 10},
		{20, 10},
		{-1, 10},
	}
	for _, c := range cases {
		if _, err := NewDualMovingAverage(c.fast, c.slow); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("windows %d/%d: want ErrInvalidParameter, got %v", c.fast, c.slow, err)
		}
	}
}

func TestMACrossover_ZeroAverage_ConfidenceZero(t *testing.T) {
	// Closes -10,10: SMA(1)=10, SMA(2)=0. The spread is measured against a
	// zero slow average; the signal stands but carries no confidence.
	s, serr := NewTrendFollowing(1, 2)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(-10, 10))
	assertSignal(t, "zero slow average", st, model.SignalBuy)
	if math.IsNaN(st.Confidence) {
		t.Fatal("confidence must never be NaN")
	}
	assertConf(t, "zero slow average confidence", st.Confidence, 0)
}

func TestMACrossover_AllZeroCloses_Holds(t *testing.T) {
	s, serr := NewTrendFollowing(1, 2)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(0, 0, 0))
	assertSignal(t, "all-zero closes", st, model.SignalHold)
	if math.IsNaN(st.Confidence) {
		t.Fatal("confidence must never be NaN")
	}
}

func TestTripleMA_ZeroLongAverage_ConfidenceZero(t *testing.T) {
	// Closes -30,0,30: SMA(1)=30 > SMA(2)=15 > SMA(3)=0 — aligned BUY,
	// but the reference average is zero.
	s, serr := NewTripleMovingAverage(1, 2, 3)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(-30, 0, 30))
	assertSignal(t, "TripleMA zero long average", st, model.SignalBuy)
	if math.IsNaN(st.Confidence) {
		t.Fatal("confidence must never be NaN")
	}
	assertConf(t, "TripleMA zero long average confidence", st.Confidence, 0)
}

func TestTripleMA_Alignment(t *testing.T) {
	s, serr := NewTripleMovingAverage(2, 3, 4)
	strat := mustBuild(t, s, serr)

	st := strat.Evaluate(series(100, 104, 108, 112, 116))
	assertSignal(t, "TripleMA rising", st, model.SignalBuy)

	st = strat.Evaluate(series(116, 112, 108, 104, 100))
	assertSignal(t, "TripleMA falling", st, model.SignalSell)

	// Flat series: all averages equal, no strict alignment.
	st = strat.Evaluate(series(100, 100, 100, 100, 100))
	assertSignal(t, "TripleMA flat", st, model.SignalHold)
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_Oversold_Buys(t *testing.T) {
	// Monotonic decline pins Wilder RSI at 0, far below the lower bound.
	s, serr := NewRSI(3, 30, 70)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(110, 108, 106, 104, 102, 100))
	assertSignal(t, "RSI oversold", st, model.SignalBuy)
	assertConf(t, "RSI oversold confidence", st.Confidence, 1.0)
}

func TestRSI_Overbought_Sells(t *testing.T) {
	s, serr := NewRSI(3, 30, 70)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 102, 104, 106, 108, 110))
	assertSignal(t, "RSI overbought", st, model.SignalSell)
	assertConf(t, "RSI overbought confidence", st.Confidence, 1.0)
}

func TestRSI_RejectsBadBounds(t *testing.T) {
	if _, err := NewRSI(14, 70, 30); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("inverted bounds: want ErrInvalidParameter, got %v", err)
	}
	if _, err := NewRSI(0, 30, 70); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero period: want ErrInvalidParameter, got %v", err)
	}
}

// ────────────────────────────────────────────────────────────
// Bands
// ────────────────────────────────────────────────────────────

func TestBollinger_SpikeAboveBand_Sells(t *testing.T) {
	// Window {100,100,100,100,130}, k=1: mean=106, std=12 → upper=118.
	s, serr := NewBollingerBands(5, 1)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 100, 100, 100, 130))
	assertSignal(t, "Bollinger spike up", st, model.SignalSell)
}

func TestBollinger_SpikeBelowBand_Buys(t *testing.T) {
	s, serr := NewBollingerBands(5, 1)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 100, 100, 100, 70))
	assertSignal(t, "Bollinger spike down", st, model.SignalBuy)
}

func TestBollinger_FlatSeries_Holds(t *testing.T) {
	s, serr := NewBollingerBands(5, 2)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 100, 100, 100, 100))
	assertSignal(t, "Bollinger flat", st, model.SignalHold)
}

func TestMeanReversion_ZScore(t *testing.T) {
	// Window {100,100,100,100,130}: mean=106, std=12, z=2.
	s, serr := NewMeanReversion(5, 1.5)
	strat := mustBuild(t, s, serr)

	st := strat.Evaluate(series(100, 100, 100, 100, 130))
	assertSignal(t, "MeanReversion z=+2", st, model.SignalSell)
	assertConf(t, "MeanReversion confidence", st.Confidence, (2.0-1.5)/1.5)

	st = strat.Evaluate(series(100, 100, 100, 100, 70))
	assertSignal(t, "MeanReversion z=-2", st, model.SignalBuy)
}

func TestMeanReversion_FlatWindow_Holds(t *testing.T) {
	s, serr := NewMeanReversion(5, 2)
	strat := mustBuild(t, s, serr)
	st := strat.Evaluate(series(100, 100, 100, 100, 100))
	assertSignal(t, "MeanReversion flat", st, model.SignalHold)
}

// ────────────────────────────────────────────────────────────
// Breakout / Momentum
// ────────────────────────────────────────────────────────────

func TestBreakout_UsesPriorWindowLevels(t *testing.T) {
	s, serr := NewBreakout(3)
	strat := mustBuild(t, s, serr)

	// Prior highs (close+1) over {10,11,12} give level 13; 15 breaks out.
	st := strat.Evaluate(series(10, 11, 12, 15))
	assertSignal(t, "Breakout up", st, model.SignalBuy)

	// Prior lows (close-1) over {15,14,13} give level 12; 5 breaks down.
	st = strat.Evaluate(series(15, 14, 13, 5))
	assertSignal(t, "Breakout down", st, model.SignalSell)

	// Inside the prior range.
	st = strat.Evaluate(series(10, 11, 12, 12.5))
	assertSignal(t, "Breakout inside range", st, model.SignalHold)
}

func TestMomentum_ThresholdCrossing(t *testing.T) {
	s, serr := NewMomentum(2, 0.05)
	strat := mustBuild(t, s, serr)

	st := strat.Evaluate(series(100, 100, 120))
	assertSignal(t, "Momentum up", st, model.SignalBuy)
	assertConf(t, "Momentum up confidence", st.Confidence, 1.0)

	st = strat.Evaluate(series(100, 100, 80))
	assertSignal(t, "Momentum down", st, model.SignalSell)

	st = strat.Evaluate(series(100, 100, 101))
	assertSignal(t, "Momentum below threshold", st, model.SignalHold)
}

// ────────────────────────────────────────────────────────────
// Factory
// ────────────────────────────────────────────────────────────

func TestFactory_UnknownType(t *testing.T) {
	if _, err := New(Spec{Type: "Astrology"}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("unknown type: want ErrInvalidParameter, got %v", err)
	}
}

func TestFactory_InvalidParams(t *testing.T) {
	spec := Spec{Type: "RSI", Params: map[string]float64{"lower": 80, "upper": 20}}
	if _, err := New(spec); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("bad RSI bounds: want ErrInvalidParameter, got %v", err)
	}
}

func TestFactory_DefaultsBuild(t *testing.T) {
	for _, spec := range DefaultSpecs() {
		strat, err := New(spec)
		if err != nil {
			t.Errorf("%s: default spec failed: %v", spec.Type, err)
			continue
		}
		if strat.Name() == "" {
			t.Errorf("%s: empty strategy name", spec.Type)
		}
		if strat.LookBack() <= 0 {
			t.Errorf("%s: non-positive look-back %d", spec.Type, strat.LookBack())
		}
	}
}

func TestEvaluate_ExactLookBackBoundary(t *testing.T) {
	rising := func(n int) *model.Series {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		return series(closes...)
	}

	for _, spec := range DefaultSpecs() {
		strat, err := New(spec)
		if err != nil {
			t.Fatalf("%s: default spec failed: %v", spec.Type, err)
		}
		n := strat.LookBack()

		st := strat.Evaluate(rising(n))
		if st.InsufficientData {
			t.Errorf("%s: %d bars equals the look-back and must evaluate", spec.Type, n)
		}
		if math.IsNaN(st.Confidence) || st.Confidence < 0 || st.Confidence > 1 {
			t.Errorf("%s: confidence %v outside [0,1]", spec.Type, st.Confidence)
		}

		st = strat.Evaluate(rising(n - 1))
		if !st.InsufficientData {
			t.Errorf("%s: %d bars is one short of the look-back", spec.Type, n-1)
		}
	}
}

func TestFactory_ParamOverride(t *testing.T) {
	strat, err := New(Spec{Type: "Breakout", Params: map[string]float64{"window": 5}})
	if err != nil {
		t.Fatalf("breakout spec failed: %v", err)
	}
	if strat.LookBack() != 6 {
		t.Errorf("Breakout window override: look-back %d, want 6", strat.LookBack())
	}
}
