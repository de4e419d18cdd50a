package backtest

import (
	"fmt"
	"math"

	"backtest-systemv1/internal/model"
)

// Metric is a ratio that may be undefined when its denominator is zero
// (win rate with no trades, profit factor with no losses). Undefined is a
// real state, distinguishable from a true zero.
type Metric struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

func metric(v float64) Metric { return Metric{Value: v, Defined: true} }

// Undefined is the sentinel for a metric whose denominator was zero.
func Undefined() Metric { return Metric{} }

func (m Metric) String() string {
	if !m.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", m.Value)
}

// Report is derived on demand from the trade ledger and equity curve.
type Report struct {
	TotalReturnPct Metric `json:"total_return_pct"`
	NumTrades      int    `json:"num_trades"`
	WinRate        Metric `json:"win_rate"`
	AvgWin         Metric `json:"avg_win"`
	AvgLoss        Metric `json:"avg_loss"`
	ProfitFactor   Metric `json:"profit_factor"`
	MaxDrawdownPct Metric `json:"max_drawdown_pct"`
	Sharpe         Metric `json:"sharpe"`
	ClosePolicy    string `json:"close_policy"`
}

// Analyze computes the performance report. Pure function of its inputs;
// every ratio with a possibly-zero denominator comes back as an undefined
// Metric rather than NaN, Inf, or a panic.
func Analyze(trades []model.TradeRecord, equity []float64, initialCapital, annualization float64) Report {
	r := Report{NumTrades: len(trades)}

	if initialCapital > 0 && len(equity) > 0 {
		final := equity[len(equity)-1]
		r.TotalReturnPct = metric((final - initialCapital) / initialCapital * 100)
	} else {
		r.TotalReturnPct = Undefined()
	}

	var wins, losses int
	var grossWin, grossLoss float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			wins++
			grossWin += t.PnL
		case t.PnL < 0:
			losses++
			grossLoss += -t.PnL
		}
	}

	r.WinRate = Undefined()
	if len(trades) > 0 {
		r.WinRate = metric(float64(wins) / float64(len(trades)))
	}
	r.AvgWin = Undefined()
	if wins > 0 {
		r.AvgWin = metric(grossWin / float64(wins))
	}
	r.AvgLoss = Undefined()
	if losses > 0 {
		r.AvgLoss = metric(-grossLoss / float64(losses))
	}
	r.ProfitFactor = Undefined()
	if grossLoss > 0 {
		r.ProfitFactor = metric(grossWin / grossLoss)
	}

	r.MaxDrawdownPct = maxDrawdown(equity)
	r.Sharpe = sharpe(equity, annualization)
	return r
}

// maxDrawdown returns the largest peak-to-trough decline over the equity
// curve as a percentage of the peak.
func maxDrawdown(equity []float64) Metric {
	if len(equity) == 0 {
		return Undefined()
	}
	peak := equity[0]
	worst := 0.0
	for _, e := range equity[1:] {
		if e > peak {
			peak = e
			continue
		}
		if peak > 0 {
			if dd := (peak - e) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return metric(worst)
}

// sharpe is the simplified risk-adjusted return: mean periodic return over
// its population standard deviation, scaled by sqrt(annualization).
func sharpe(equity []float64, annualization float64) Metric {
	if len(equity) < 2 {
		return Undefined()
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			return Undefined()
		}
		rets = append(rets, equity[i]/equity[i-1]-1)
	}
	var sum float64
	for _, r := range rets {
		sum += r
	}
	mean := sum / float64(len(rets))
	var sq float64
	for _, r := range rets {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(rets)))
	if std == 0 {
		return Undefined()
	}
	return metric(mean / std * math.Sqrt(annualization))
}
