package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backtest-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Subscriber consumes published signal actions and reads back recent
// history from the per-ticker streams.
type Subscriber struct {
	client *goredis.Client
}

// NewSubscriber creates a Subscriber and pings the server.
func NewSubscriber(cfg Config) (*Subscriber, error) {
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

	log.Printf("[redis-sub] connected to %s", cfg.Addr)
	return &Subscriber{client: client}, nil
}

// SubscribeActions subscribes to pub:signal:* and feeds decoded actions
// into out. A full out channel drops the action rather than blocking the
// subscription. Blocks until ctx is cancelled.
func (s *Subscriber) SubscribeActions(ctx context.Context, out chan<- model.Action) error {
	pubsub := s.client.PSubscribe(ctx, "pub:signal:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var act model.Action
			if err := json.Unmarshal([]byte(msg.Payload), &act); err != nil {
				log.Printf("[redis-sub] unmarshal action error: %v", err)
				continue
			}
			select {
			case out <- act:
			default:
			}
		}
	}
}

// RecentActions reads up to count most recent actions for a ticker from
// its stream, oldest first.
func (s *Subscriber) RecentActions(ctx context.Context, ticker string, count int64) ([]model.Action, error) {
	msgs, err := s.client.XRevRangeN(ctx, "signal:"+ticker, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange signal:%s: %w", ticker, err)
	}

	actions := make([]model.Action, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		data, ok := msgs[i].Values["data"].(string)
		if !ok {
			continue
		}
		var act model.Action
		if err := json.Unmarshal([]byte(data), &act); err != nil {
			continue
		}
		actions = append(actions, act)
	}
	return actions, nil
}

// LatestAction fetches the latest action for a (ticker, strategy) pair.
// Returns nil when none is stored.
func (s *Subscriber) LatestAction(ctx context.Context, ticker, strategy string) (*model.Action, error) {
	data, err := s.client.Get(ctx, "signal:latest:"+ticker+":"+strategy).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get latest signal: %w", err)
	}
	var act model.Action
	if err := json.Unmarshal([]byte(data), &act); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	return &act, nil
}

// Close closes the Redis client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}
