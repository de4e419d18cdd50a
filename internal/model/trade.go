package model

import "time"

// Position is the single open position held by a backtest run.
// Created on a BUY action when flat, destroyed on a SELL when holding.
type Position struct {
	Strategy   string    `json:"strategy"`
	Ticker     string    `json:"ticker"`
	Qty        float64   `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	EntryTS    time.Time `json:"entry_ts"`
}

// UnrealizedPnL marks the position against the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Qty
}

// TradeRecord is an immutable snapshot written when a position closes.
// The trade ledger is an append-only ordered sequence of these.
type TradeRecord struct {
	Strategy   string        `json:"strategy"`
	Ticker     string        `json:"ticker"`
	Qty        float64       `json:"qty"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	EntryTS    time.Time     `json:"entry_ts"`
	ExitTS     time.Time     `json:"exit_ts"`
	PnL        float64       `json:"pnl"`
	Holding    time.Duration `json:"holding"`
}

// CloseTrade converts an open position into a trade record at the given
// exit price and time.
func CloseTrade(pos Position, exitPrice float64, exitTS time.Time) TradeRecord {
	return TradeRecord{
		Strategy:   pos.Strategy,
		Ticker:     pos.Ticker,
		Qty:        pos.Qty,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		EntryTS:    pos.EntryTS,
		ExitTS:     exitTS,
		PnL:        (exitPrice - pos.EntryPrice) * pos.Qty,
		Holding:    exitTS.Sub(pos.EntryTS),
	}
}
