// Package redis publishes signal actions to Redis for downstream consumers
// (the websocket gateway, dashboards) and reads them back.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"backtest-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Per-ticker action stream trimming: enough for a few days of signals.
	actionStreamMaxLen = 1000
	defaultLatestTTL   = 30 * time.Minute
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signal actions to Redis: latest value per
// (ticker, strategy), an append stream per ticker, and a pub/sub fan-out.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a new Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Run reads actions from actionCh and publishes them.
// Blocks until ctx is cancelled or actionCh is closed.
func (p *Publisher) Run(ctx context.Context, actionCh <-chan model.Action) {
	for {
		select {
		case <-ctx.Done():
			return
		case act, ok := <-actionCh:
			if !ok {
				return
			}
			p.publishAction(ctx, act)
		}
	}
}

// publishAction performs pipelined writes for one action:
// SET latest + XADD to the ticker stream + PUBLISH for live subscribers.
func (p *Publisher) publishAction(ctx context.Context, act model.Action) {
	latestKey := "signal:latest:" + act.Ticker + ":" + act.Strategy
	streamKey := "signal:" + act.Ticker
	pubsubCh := "pub:signal:" + act.Ticker
	jsonData := string(act.JSON())

	pipe := p.client.Pipeline()

	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: actionStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})

	pipe.Publish(ctx, pubsubCh, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] pipeline error for %s/%s: %v", act.Ticker, act.Strategy, err)
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
