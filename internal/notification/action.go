package notification

import (
	"context"
	"fmt"
	"log"

	"backtest-systemv1/internal/model"
)

// FormatAction renders a signal action as an alert. BUY and SELL signals
// are warnings (they ask for attention), HOLD transitions are informational.
func FormatAction(act model.Action) Alert {
	level := AlertInfo
	marker := "⏸"
	switch act.Signal {
	case model.SignalBuy:
		level = AlertWarning
		marker = "🟢"
	case model.SignalSell:
		level = AlertWarning
		marker = "🔴"
	}

	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s %s signal: %s", marker, act.Ticker, act.Signal),
		Message: fmt.Sprintf("Strategy: %s\nPrice: %.2f\nConfidence: %.0f%%\nTime: %s",
			act.Strategy, act.Price, act.Confidence*100, act.TS.Format("2006-01-02 15:04:05 MST")),
	}
}

// Dispatcher fans one alert out to every configured channel. A failing
// channel is logged and skipped so one outage never silences the rest.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Add registers another channel.
func (d *Dispatcher) Add(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Len returns the number of configured channels.
func (d *Dispatcher) Len() int { return len(d.notifiers) }

// DispatchAction formats and delivers an action to all channels.
func (d *Dispatcher) DispatchAction(ctx context.Context, act model.Action) {
	alert := FormatAction(act)
	for _, n := range d.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] delivery failed (%T): %v", n, err)
		}
	}
}
