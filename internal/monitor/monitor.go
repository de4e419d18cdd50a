// Package monitor polls market data on an interval, evaluates strategies
// per ticker, and dispatches edge-triggered signal actions to the alert
// channels, Redis, and Prometheus.
package monitor

import (
	"context"
	"log"
	"time"

	"backtest-systemv1/internal/marketdata"
	"backtest-systemv1/internal/markethours"
	"backtest-systemv1/internal/metrics"
	"backtest-systemv1/internal/model"
	"backtest-systemv1/internal/notification"
	"backtest-systemv1/internal/signal"
	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
	"backtest-systemv1/internal/strategy"
)

const defaultHistoryDays = 400

// Options wires the monitor's collaborators. Provider and Interval are
// required; everything else degrades gracefully when nil.
type Options struct {
	Provider    marketdata.Provider
	Interval    time.Duration
	HistoryDays int // look-back horizon per fetch, default 400

	Dispatcher *notification.Dispatcher
	Publisher  *redisstore.BufferedPublisher
	Metrics    *metrics.Metrics
	Health     *metrics.HealthStatus

	// SkipNonTradingDays idles polling rounds on weekends and exchange
	// holidays, when daily bars cannot change.
	SkipNonTradingDays bool

	// ConfigReader supplies the active (ticker, strategy) entries each
	// round, so pause/resume takes effect without a restart.
	ConfigReader *sqlitestore.Reader

	// Static entries evaluated when no ConfigReader is set.
	Entries []sqlitestore.MonitorConfig
}

// Monitor owns one detector per active (ticker, strategy) pair and drives
// them from fresh market data every polling round.
type Monitor struct {
	opts      Options
	detectors map[string]*signal.Detector
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = defaultHistoryDays
	}
	return &Monitor{
		opts:      opts,
		detectors: make(map[string]*signal.Detector),
	}
}

// Run polls until ctx is cancelled. The first round fires immediately.
func (m *Monitor) Run(ctx context.Context) error {
	log.Printf("[monitor] starting, interval=%s", m.opts.Interval)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[monitor] stopped")
			return ctx.Err()
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll runs one evaluation round over all active entries.
func (m *Monitor) poll(ctx context.Context) {
	if m.opts.SkipNonTradingDays && !markethours.IsTradingDay(time.Now()) {
		log.Printf("[monitor] %s, skipping round", markethours.StatusString(time.Now()))
		return
	}

	entries := m.activeEntries()
	if len(entries) == 0 {
		log.Println("[monitor] no active entries")
		return
	}

	// Group by ticker so each ticker is fetched once per round.
	byTicker := make(map[string][]sqlitestore.MonitorConfig)
	for _, e := range entries {
		byTicker[e.Ticker] = append(byTicker[e.Ticker], e)
	}

	now := time.Now()
	from := now.AddDate(0, 0, -m.opts.HistoryDays)
	emitted := 0

	for tickerSym, tickerEntries := range byTicker {
		series, err := m.fetch(ctx, tickerSym, from, now)
		if err != nil {
			log.Printf("[monitor] fetch %s: %v", tickerSym, err)
			if m.opts.Metrics != nil {
				m.opts.Metrics.FetchErrorsTotal.WithLabelValues(tickerSym).Inc()
			}
			continue
		}

		for _, e := range tickerEntries {
			act, err := m.evaluate(series, e)
			if err != nil {
				log.Printf("[monitor] %s/%s: %v", e.Ticker, e.Strategy, err)
				continue
			}
			if act != nil {
				m.emit(ctx, *act)
				emitted++
			}
		}

		if ctx.Err() != nil {
			return
		}
	}

	if m.opts.Metrics != nil {
		m.opts.Metrics.PollsTotal.Inc()
		m.opts.Metrics.ActiveMonitors.Set(float64(len(entries)))
		m.opts.Metrics.LastPollAge.Set(0)
	}
	if m.opts.Health != nil {
		m.opts.Health.SetLastPollTime(time.Now())
	}
	log.Printf("[monitor] round complete: %d entries, %d actions", len(entries), emitted)
}

func (m *Monitor) fetch(ctx context.Context, ticker string, from, to time.Time) (*model.Series, error) {
	start := time.Now()
	series, err := m.opts.Provider.History(ctx, ticker, from, to)
	if m.opts.Metrics != nil {
		m.opts.Metrics.FetchDur.Observe(time.Since(start).Seconds())
	}
	return series, err
}

// evaluate runs one entry's detector over the fresh series, creating the
// detector on first sight.
func (m *Monitor) evaluate(series *model.Series, e sqlitestore.MonitorConfig) (*model.Action, error) {
	key := e.Ticker + "|" + e.Strategy
	det, ok := m.detectors[key]
	if !ok {
		strat, err := strategy.New(strategy.Spec{Type: e.Strategy, Params: e.Params})
		if err != nil {
			return nil, err
		}
		det = signal.NewDetector(strat, e.Ticker)
		m.detectors[key] = det
	}

	start := time.Now()
	act := det.OnBar(series)
	if m.opts.Metrics != nil {
		m.opts.Metrics.EvaluateDur.Observe(time.Since(start).Seconds())
	}
	return act, nil
}

func (m *Monitor) emit(ctx context.Context, act model.Action) {
	log.Printf("[monitor] %s %s %s @ %.2f (conf %.2f)",
		act.Ticker, act.Strategy, act.Signal, act.Price, act.Confidence)

	if m.opts.Metrics != nil {
		m.opts.Metrics.SignalsTotal.WithLabelValues(act.Ticker, act.Strategy, string(act.Signal)).Inc()
	}
	if m.opts.Dispatcher != nil && m.opts.Dispatcher.Len() > 0 {
		m.opts.Dispatcher.DispatchAction(ctx, act)
		if m.opts.Metrics != nil {
			m.opts.Metrics.AlertsSentTotal.Inc()
		}
	}
	if m.opts.Publisher != nil {
		if err := m.opts.Publisher.PublishAction(act); err != nil {
			log.Printf("[monitor] redis publish: %v", err)
		}
	}
}

// activeEntries returns the entries to evaluate this round. Detectors for
// entries that disappeared are dropped so a later re-activation starts
// from a clean HOLD state.
func (m *Monitor) activeEntries() []sqlitestore.MonitorConfig {
	entries := m.opts.Entries
	if m.opts.ConfigReader != nil {
		loaded, err := m.opts.ConfigReader.ListMonitorConfigs(sqlitestore.StatusActive)
		if err != nil {
			log.Printf("[monitor] load configs: %v", err)
			return nil
		}
		entries = loaded
	}

	live := make(map[string]bool, len(entries))
	for _, e := range entries {
		live[e.Ticker+"|"+e.Strategy] = true
	}
	for key := range m.detectors {
		if !live[key] {
			delete(m.detectors, key)
		}
	}
	return entries
}
