// Package backtest simulates a strategy over a historical series and
// computes performance metrics from the resulting trade ledger.
package backtest

import (
	"fmt"

	"backtest-systemv1/internal/model"
	"backtest-systemv1/internal/signal"
	"backtest-systemv1/internal/strategy"
)

// Close policies for a position still open at the end of the series.
const (
	CloseForced = "force-closed at final bar"
	CloseOpen   = "left open, excluded from realized metrics"
)

// Config drives one backtest run. Zero values fall back to the defaults
// noted per field.
type Config struct {
	InitialCapital float64 // default 100000
	SizingFraction float64 // fraction of equity per entry, default 0.10
	// ConfidenceWeighted scales the sizing fraction by the action's
	// confidence score instead of using it flat.
	ConfidenceWeighted bool
	// LeaveOpenAtEnd keeps a still-open final position out of the ledger
	// instead of force-closing it at the last bar's close.
	LeaveOpenAtEnd bool
	Annualization  float64 // periods per year for the Sharpe ratio, default 252
}

func (c Config) withDefaults() Config {
	if c.InitialCapital == 0 {
		c.InitialCapital = 100000
	}
	if c.SizingFraction == 0 {
		c.SizingFraction = 0.10
	}
	if c.Annualization == 0 {
		c.Annualization = 252
	}
	return c
}

// Result holds everything a single run produced: the append-only trade
// ledger, the per-bar equity curve, any position left open, the emitted
// actions, and the derived performance report.
type Result struct {
	Ticker   string              `json:"ticker"`
	Strategy string              `json:"strategy"`
	Trades   []model.TradeRecord `json:"trades"`
	Equity   []float64           `json:"equity"`
	Open     *model.Position     `json:"open,omitempty"`
	Actions  []model.Action      `json:"actions"`
	Report   Report              `json:"report"`
}

// Run walks the series bar-by-bar through an edge-triggered detector over
// the given strategy, applying BUY-opens-when-flat / SELL-closes-when-held
// with no pyramiding. One equity point is recorded per bar whether or not
// a trade occurred. The walk is strictly sequential with no look-ahead, so
// identical inputs always produce identical ledgers and curves.
func Run(series *model.Series, strat strategy.Strategy, cfg Config) (*Result, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("backtest %s/%s: %w", series.Ticker, strat.Name(), err)
	}
	cfg = cfg.withDefaults()

	det := signal.NewDetector(strat, series.Ticker)
	cash := cfg.InitialCapital
	var pos *model.Position
	var trades []model.TradeRecord
	var actions []model.Action
	equity := make([]float64, 0, series.Len())

	start := strat.LookBack() - 1
	for i := 0; i < series.Len(); i++ {
		if i >= start {
			if act := det.OnBar(series.Prefix(i)); act != nil {
				actions = append(actions, *act)
				switch act.Signal {
				case model.SignalBuy:
					if pos == nil && act.Price > 0 {
						frac := cfg.SizingFraction
						if cfg.ConfidenceWeighted {
							frac *= act.Confidence
						}
						if qty := cash * frac / act.Price; qty > 0 {
							pos = &model.Position{
								Strategy:   act.Strategy,
								Ticker:     act.Ticker,
								Qty:        qty,
								EntryPrice: act.Price,
								EntryTS:    act.TS,
							}
						}
					}
				case model.SignalSell:
					if pos != nil {
						tr := model.CloseTrade(*pos, act.Price, act.TS)
						trades = append(trades, tr)
						cash += tr.PnL
						pos = nil
					}
				}
			}
		}
		mark := cash
		if pos != nil {
			mark += pos.UnrealizedPnL(series.Bars[i].Close)
		}
		equity = append(equity, mark)
	}

	policy := CloseOpen
	if pos != nil && !cfg.LeaveOpenAtEnd {
		end := series.Last()
		tr := model.CloseTrade(*pos, end.Close, end.TS)
		trades = append(trades, tr)
		cash += tr.PnL
		pos = nil
		equity[len(equity)-1] = cash
	}
	if !cfg.LeaveOpenAtEnd {
		policy = CloseForced
	}

	report := Analyze(trades, equity, cfg.InitialCapital, cfg.Annualization)
	report.ClosePolicy = policy

	return &Result{
		Ticker:   series.Ticker,
		Strategy: strat.Name(),
		Trades:   trades,
		Equity:   equity,
		Open:     pos,
		Actions:  actions,
		Report:   report,
	}, nil
}
