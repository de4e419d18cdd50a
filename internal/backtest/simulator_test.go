package backtest

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"backtest-systemv1/internal/model"
	"backtest-systemv1/internal/strategy"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func linearSeries(n int, from, to float64) *model.Series {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	step := (to - from) / float64(n-1)
	for i := range bars {
		c := from + step*float64(i)
		bars[i] = model.Bar{
			TS:    base.AddDate(0, 0, i),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return &model.Series{Ticker: "TEST", Bars: bars}
}

// levelStrategy signals from close price levels with a fixed confidence.
type levelStrategy struct {
	buyAt  float64
	sellAt float64
	conf   float64
}

func (l *levelStrategy) Name() string  { return "Level" }
func (l *levelStrategy) LookBack() int { return 1 }

func (l *levelStrategy) Evaluate(s *model.Series) model.SignalState {
	c := s.Last().Close
	switch {
	case c >= l.buyAt:
		return model.SignalState{Signal: model.SignalBuy, Confidence: l.conf}
	case c <= l.sellAt:
		return model.SignalState{Signal: model.SignalSell, Confidence: l.conf}
	default:
		return model.Hold()
	}
}

func levelSeries(closes ...float64) *model.Series {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{TS: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return &model.Series{Ticker: "TEST", Bars: bars}
}

// ────────────────────────────────────────────────────────────
// Core walk
// ────────────────────────────────────────────────────────────

func TestRun_RSICycles_DirectionalActionsAlternate(t *testing.T) {
	// Five full price cycles: 100 ± 25 over a 40-bar period. RSI(14,30,70)
	// swings through overbought near every crest and oversold near every
	// trough, so the edge-triggered actions must strictly alternate —
	// never two BUYs without a SELL between them.
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 200)
	for i := range bars {
		c := 100 + 25*math.Sin(2*math.Pi*float64(i)/40)
		bars[i] = model.Bar{TS: base.AddDate(0, 0, i), Open: c, High: c + 0.5, Low: c - 0.5, Close: c}
	}
	series := &model.Series{Ticker: "TEST", Bars: bars}

	strat, err := strategy.NewRSI(14, 30, 70)
	if err != nil {
		t.Fatal(err)
	}
	result, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}

	var directional []model.Signal
	for _, act := range result.Actions {
		if act.Signal != model.SignalHold {
			directional = append(directional, act.Signal)
		}
	}

	if len(directional) < 6 {
		t.Fatalf("only %d directional actions over five cycles: %v", len(directional), directional)
	}
	for i := 1; i < len(directional); i++ {
		if directional[i] == directional[i-1] {
			t.Fatalf("consecutive %s actions at %d with no opposite signal between: %v",
				directional[i], i, directional)
		}
	}
	if len(result.Trades) == 0 {
		t.Error("alternating signals must close round trips")
	}
}

func TestRun_RisingTrend_SingleRoundTrip(t *testing.T) {
	series := linearSeries(300, 100, 130)
	strat, err := strategy.NewDualMovingAverage(10, 30)
	if err != nil {
		t.Fatal(err)
	}

	result, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}

	// A monotone uptrend produces exactly one BUY edge and no SELL;
	// the default policy force-closes at the final bar.
	if len(result.Actions) != 1 || result.Actions[0].Signal != model.SignalBuy {
		t.Fatalf("actions = %v, want a single BUY", result.Actions)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1 force-closed trade", len(result.Trades))
	}
	if result.Open != nil {
		t.Error("no position should remain open under the default policy")
	}
	if result.Report.ClosePolicy != CloseForced {
		t.Errorf("close policy %q, want %q", result.Report.ClosePolicy, CloseForced)
	}
	if len(result.Equity) != series.Len() {
		t.Errorf("equity has %d points, want one per bar (%d)", len(result.Equity), series.Len())
	}

	trade := result.Trades[0]
	if trade.PnL <= 0 {
		t.Errorf("uptrend round trip should profit, pnl = %.2f", trade.PnL)
	}

	// P&L identity: final equity = initial capital + realized pnl.
	final := result.Equity[len(result.Equity)-1]
	if math.Abs(final-(100000+trade.PnL)) > 1e-6 {
		t.Errorf("final equity %.6f != initial + pnl %.6f", final, 100000+trade.PnL)
	}
}

func TestRun_Deterministic(t *testing.T) {
	series := linearSeries(300, 100, 130)
	strat, _ := strategy.NewDualMovingAverage(10, 30)

	a, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Error("identical inputs must produce byte-identical results")
	}
}

func TestRun_SeriesShorterThanLookBack(t *testing.T) {
	series := linearSeries(10, 100, 110)
	strat, _ := strategy.NewDualMovingAverage(10, 30)

	result, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Actions) != 0 || len(result.Trades) != 0 {
		t.Error("warm-up only series must produce no actions or trades")
	}
	for i, e := range result.Equity {
		if e != 100000 {
			t.Fatalf("equity[%d] = %.2f, want untouched initial capital", i, e)
		}
	}
}

func TestRun_InvalidSeries(t *testing.T) {
	series := linearSeries(10, 100, 110)
	series.Bars[3].TS = series.Bars[2].TS // duplicate timestamp

	strat, _ := strategy.NewDualMovingAverage(2, 3)
	if _, err := Run(series, strat, Config{}); !errors.Is(err, model.ErrInvalidSeries) {
		t.Errorf("want ErrInvalidSeries, got %v", err)
	}
}

// ────────────────────────────────────────────────────────────
// Position rules and sizing
// ────────────────────────────────────────────────────────────

func TestRun_PositionRules(t *testing.T) {
	// BUY at 115 twice (second ignored, no pyramiding), SELL at 85.
	strat := &levelStrategy{buyAt: 110, sellAt: 90, conf: 1}
	series := levelSeries(100, 115, 100, 116, 85, 100)

	result, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}

	// Edges: BUY@115, HOLD@100, BUY edge again@116, SELL@85, HOLD@100.
	// Only the first BUY opens; the ledger holds one losing round trip.
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.EntryPrice != 115 || trade.ExitPrice != 85 {
		t.Errorf("round trip %v/%v, want entry 115 exit 85", trade.EntryPrice, trade.ExitPrice)
	}

	// Default sizing: 10% of cash at the entry price.
	wantQty := 100000 * 0.10 / 115
	if math.Abs(trade.Qty-wantQty) > 1e-9 {
		t.Errorf("qty %.6f, want %.6f", trade.Qty, wantQty)
	}
}

func TestRun_ConfidenceWeightedSizing(t *testing.T) {
	strat := &levelStrategy{buyAt: 110, sellAt: 90, conf: 0.5}
	series := levelSeries(100, 115, 115, 85)

	result, err := Run(series, strat, Config{ConfidenceWeighted: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(result.Trades))
	}

	// Sizing fraction scaled by confidence: 0.10 * 0.5 of cash.
	wantQty := 100000 * 0.10 * 0.5 / 115
	if math.Abs(result.Trades[0].Qty-wantQty) > 1e-9 {
		t.Errorf("qty %.6f, want %.6f", result.Trades[0].Qty, wantQty)
	}
}

func TestRun_LeaveOpenAtEnd(t *testing.T) {
	strat := &levelStrategy{buyAt: 110, sellAt: 0, conf: 1}
	series := levelSeries(100, 115, 120, 125)

	result, err := Run(series, strat, Config{LeaveOpenAtEnd: true})
	if err != nil {
		t.Fatal(err)
	}

	if result.Open == nil {
		t.Fatal("position should stay open")
	}
	if len(result.Trades) != 0 {
		t.Errorf("open position must stay out of the ledger, got %d trades", len(result.Trades))
	}
	if result.Report.ClosePolicy != CloseOpen {
		t.Errorf("close policy %q, want %q", result.Report.ClosePolicy, CloseOpen)
	}
	if result.Report.NumTrades != 0 {
		t.Errorf("num trades %d, want 0", result.Report.NumTrades)
	}

	// Final equity still marks the open position to market.
	wantFinal := 100000 + result.Open.UnrealizedPnL(125)
	final := result.Equity[len(result.Equity)-1]
	if math.Abs(final-wantFinal) > 1e-6 {
		t.Errorf("final equity %.6f, want %.6f", final, wantFinal)
	}
}

func TestRun_EquityMarksOpenPosition(t *testing.T) {
	strat := &levelStrategy{buyAt: 110, sellAt: 90, conf: 1}
	series := levelSeries(100, 115, 120, 85)

	result, err := Run(series, strat, Config{})
	if err != nil {
		t.Fatal(err)
	}

	// Bar 2: position opened at 115 and marked at 120.
	qty := 100000 * 0.10 / 115.0
	want := 100000 + qty*(120-115)
	if math.Abs(result.Equity[2]-want) > 1e-6 {
		t.Errorf("equity[2] = %.6f, want %.6f", result.Equity[2], want)
	}
}
