package backtest

import (
	"math"
	"testing"

	"backtest-systemv1/internal/model"
)

func pnls(values ...float64) []model.TradeRecord {
	trades := make([]model.TradeRecord, len(values))
	for i, v := range values {
		trades[i] = model.TradeRecord{PnL: v}
	}
	return trades
}

func assertMetric(t *testing.T, label string, got Metric, want float64) {
	t.Helper()
	if !got.Defined {
		t.Fatalf("%s: undefined, want %.6f", label, want)
	}
	if math.Abs(got.Value-want) > 0.0001 {
		t.Errorf("%s: got %.6f, want %.6f", label, got.Value, want)
	}
}

func assertUndefinedMetric(t *testing.T, label string, got Metric) {
	t.Helper()
	if got.Defined {
		t.Errorf("%s: got %.6f, want undefined", label, got.Value)
	}
}

// ────────────────────────────────────────────────────────────
// Ratio metrics and their zero-denominator states
// ────────────────────────────────────────────────────────────

func TestAnalyze_NoTrades(t *testing.T) {
	r := Analyze(nil, []float64{100000, 100000}, 100000, 252)

	if r.NumTrades != 0 {
		t.Errorf("num trades %d, want 0", r.NumTrades)
	}
	assertUndefinedMetric(t, "win rate", r.WinRate)
	assertUndefinedMetric(t, "avg win", r.AvgWin)
	assertUndefinedMetric(t, "avg loss", r.AvgLoss)
	assertUndefinedMetric(t, "profit factor", r.ProfitFactor)
	assertMetric(t, "total return", r.TotalReturnPct, 0)
}

func TestAnalyze_AllWins_ProfitFactorUndefined(t *testing.T) {
	// Gross loss is zero, so the profit factor has no denominator.
	r := Analyze(pnls(100, 50), []float64{100000, 100150}, 100000, 252)

	assertMetric(t, "win rate", r.WinRate, 1.0)
	assertMetric(t, "avg win", r.AvgWin, 75)
	assertUndefinedMetric(t, "avg loss", r.AvgLoss)
	assertUndefinedMetric(t, "profit factor", r.ProfitFactor)
}

func TestAnalyze_MixedLedger(t *testing.T) {
	// Wins +100, +50; losses -30, -20.
	// Gross win 150, gross loss 50: profit factor 3, avg loss -25.
	r := Analyze(pnls(100, -30, 50, -20), []float64{100000, 100100}, 100000, 252)

	if r.NumTrades != 4 {
		t.Errorf("num trades %d, want 4", r.NumTrades)
	}
	assertMetric(t, "win rate", r.WinRate, 0.5)
	assertMetric(t, "avg win", r.AvgWin, 75)
	assertMetric(t, "avg loss", r.AvgLoss, -25)
	assertMetric(t, "profit factor", r.ProfitFactor, 3.0)
}

func TestAnalyze_BreakEvenTradeCountsAgainstWinRate(t *testing.T) {
	// A zero-pnl trade is neither win nor loss but still a trade.
	r := Analyze(pnls(100, 0), []float64{100000, 100100}, 100000, 252)
	assertMetric(t, "win rate with scratch", r.WinRate, 0.5)
}

func TestAnalyze_TotalReturn(t *testing.T) {
	r := Analyze(nil, []float64{100000, 105000, 110000}, 100000, 252)
	assertMetric(t, "total return", r.TotalReturnPct, 10.0)

	r = Analyze(nil, nil, 100000, 252)
	assertUndefinedMetric(t, "total return with no curve", r.TotalReturnPct)
}

// ────────────────────────────────────────────────────────────
// Drawdown
// ────────────────────────────────────────────────────────────

func TestMaxDrawdown_PeakToTrough(t *testing.T) {
	// Peak 120 to trough 90 is a 25% decline; the later recovery to 110
	// must not shrink it.
	r := Analyze(nil, []float64{100, 120, 90, 110}, 100, 252)
	assertMetric(t, "max drawdown", r.MaxDrawdownPct, 25.0)
}

func TestMaxDrawdown_MonotonicCurve_IsZero(t *testing.T) {
	r := Analyze(nil, []float64{100, 110, 120, 130}, 100, 252)
	assertMetric(t, "max drawdown monotonic", r.MaxDrawdownPct, 0)
}

func TestMaxDrawdown_EmptyCurve_Undefined(t *testing.T) {
	r := Analyze(nil, nil, 100, 252)
	assertUndefinedMetric(t, "max drawdown empty", r.MaxDrawdownPct)
}

// ────────────────────────────────────────────────────────────
// Sharpe
// ────────────────────────────────────────────────────────────

func TestSharpe_HandComputed(t *testing.T) {
	// Returns +10%, -5%: mean 0.025, population std 0.075.
	// Sharpe = 0.025/0.075 * sqrt(252) = 5.291502
	r := Analyze(nil, []float64{100, 110, 104.5}, 100, 252)
	assertMetric(t, "sharpe", r.Sharpe, 5.291502)
}

func TestSharpe_FlatCurve_Undefined(t *testing.T) {
	// Zero volatility has no risk-adjusted return.
	r := Analyze(nil, []float64{100, 100, 100}, 100, 252)
	assertUndefinedMetric(t, "sharpe flat", r.Sharpe)
}

func TestSharpe_TooFewPoints_Undefined(t *testing.T) {
	r := Analyze(nil, []float64{100}, 100, 252)
	assertUndefinedMetric(t, "sharpe single point", r.Sharpe)
}

func TestSharpe_ZeroEquityPoint_Undefined(t *testing.T) {
	r := Analyze(nil, []float64{100, 0, 50}, 100, 252)
	assertUndefinedMetric(t, "sharpe through zero", r.Sharpe)
}

func TestMetricString(t *testing.T) {
	if s := Undefined().String(); s != "n/a" {
		t.Errorf("undefined metric prints %q, want n/a", s)
	}
	if s := metric(1.2345).String(); s != "1.23" {
		t.Errorf("defined metric prints %q, want 1.23", s)
	}
}
