// Package execution simulates order fills for emitted signal actions
// without real broker calls. The paper trader consumes the live action
// stream and maintains one open position per (ticker, strategy) pair,
// journaling every closed round trip.
package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"backtest-systemv1/internal/model"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

// Fill represents a simulated order fill.
type Fill struct {
	OrderID  string       `json:"order_id"`
	Ticker   string       `json:"ticker"`
	Strategy string       `json:"strategy"`
	Signal   model.Signal `json:"signal"`
	Price    float64      `json:"price"`    // fill price after slippage
	Slippage float64      `json:"slippage"` // absolute price impact
	Qty      float64      `json:"qty"`
	FilledAt time.Time    `json:"filled_at"`
}

// Config tunes the simulation. Zero values fall back to the defaults
// noted per field.
type Config struct {
	Allocation  float64 // notional per entry, default 10000
	SlippageBps float64 // simulated slippage in basis points, default 5
}

func (c Config) withDefaults() Config {
	if c.Allocation == 0 {
		c.Allocation = 10000
	}
	if c.SlippageBps == 0 {
		c.SlippageBps = 5
	}
	return c
}

// PaperTrader executes signal actions against simulated fills. A BUY
// opens a position when flat, a SELL closes a held one; everything else
// is ignored, mirroring the backtest position rules.
type PaperTrader struct {
	cfg     Config
	journal *sqlitestore.Writer // nil disables persistence

	mu        sync.RWMutex
	positions map[string]*model.Position
	fills     []Fill
	realized  float64
	orderSeq  int64
}

// New creates a paper trader. journal may be nil to keep trades in
// memory only.
func New(cfg Config, journal *sqlitestore.Writer) *PaperTrader {
	return &PaperTrader{
		cfg:       cfg.withDefaults(),
		journal:   journal,
		positions: make(map[string]*model.Position),
		fills:     make([]Fill, 0, 256),
	}
}

// Run consumes signal actions until ctx is cancelled or actionCh closes.
func (p *PaperTrader) Run(ctx context.Context, actionCh <-chan model.Action) {
	for {
		select {
		case <-ctx.Done():
			return
		case act, ok := <-actionCh:
			if !ok {
				return
			}
			p.Execute(act)
		}
	}
}

// Execute applies one action. Safe for concurrent use.
func (p *PaperTrader) Execute(act model.Action) {
	if act.Price <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := act.Ticker + "|" + act.Strategy
	switch act.Signal {
	case model.SignalBuy:
		if p.positions[key] != nil {
			return // no pyramiding
		}
		fillPrice := act.Price * (1 + p.cfg.SlippageBps/10000)
		qty := p.cfg.Allocation / fillPrice
		p.positions[key] = &model.Position{
			Strategy:   act.Strategy,
			Ticker:     act.Ticker,
			Qty:        qty,
			EntryPrice: fillPrice,
			EntryTS:    act.TS,
		}
		p.recordFill(act, fillPrice, fillPrice-act.Price, qty)
		log.Printf("[paper] opened %s/%s: %.4f @ %.2f", act.Ticker, act.Strategy, qty, fillPrice)

	case model.SignalSell:
		pos := p.positions[key]
		if pos == nil {
			return
		}
		fillPrice := act.Price * (1 - p.cfg.SlippageBps/10000)
		trade := model.CloseTrade(*pos, fillPrice, act.TS)
		delete(p.positions, key)
		p.realized += trade.PnL
		p.recordFill(act, fillPrice, act.Price-fillPrice, pos.Qty)
		log.Printf("[paper] closed %s/%s: pnl %.2f (total %.2f)",
			act.Ticker, act.Strategy, trade.PnL, p.realized)

		if p.journal != nil {
			if err := p.journal.SaveTrades([]model.TradeRecord{trade}); err != nil {
				log.Printf("[paper] journal trade failed: %v", err)
			}
		}
	}
}

func (p *PaperTrader) recordFill(act model.Action, price, slippage, qty float64) {
	p.orderSeq++
	p.fills = append(p.fills, Fill{
		OrderID:  fmt.Sprintf("PAPER-%d", p.orderSeq),
		Ticker:   act.Ticker,
		Strategy: act.Strategy,
		Signal:   act.Signal,
		Price:    price,
		Slippage: slippage,
		Qty:      qty,
		FilledAt: time.Now().UTC(),
	})
}

// Fills returns a snapshot of all simulated fills.
func (p *PaperTrader) Fills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// OpenPositions returns a snapshot of currently held positions.
func (p *PaperTrader) OpenPositions() []model.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out
}

// RealizedPnL returns the cumulative realized profit and loss.
func (p *PaperTrader) RealizedPnL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realized
}
