package redis

import (
	"context"
	"errors"
	"log"
	"sync"

	"backtest-systemv1/internal/model"
)

// BufferedPublisher wraps a Publisher with a circuit breaker. During
// circuit-open state, actions are buffered locally and flushed when the
// circuit closes again, so a Redis outage does not lose signals.
type BufferedPublisher struct {
	pub *Publisher
	cb  *CircuitBreaker
	ctx context.Context

	mu     sync.Mutex
	buffer []model.Action
	maxBuf int

	// Callbacks
	OnBuffer func()          // called when an action is buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered actions
}

// NewBufferedPublisher creates a BufferedPublisher wrapping the given Publisher.
func NewBufferedPublisher(ctx context.Context, p *Publisher, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	bp := &BufferedPublisher{
		pub:    p,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]model.Action, 0, 64),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bp.flush()
		}
	}

	return bp
}

// PublishAction publishes an action through the circuit breaker.
// If the circuit is open, the action is buffered locally.
func (bp *BufferedPublisher) PublishAction(act model.Action) error {
	err := bp.cb.Do(func() error {
		return bp.pub.client.Ping(bp.ctx).Err()
	})
	if errors.Is(err, ErrBreakerOpen) {
		bp.bufferAction(act)
		return nil // buffered, not lost
	}
	if err != nil {
		bp.bufferAction(act)
		return err
	}
	bp.pub.publishAction(bp.ctx, act)
	return nil
}

func (bp *BufferedPublisher) bufferAction(act model.Action) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.buffer) >= bp.maxBuf {
		// Buffer full — drop oldest
		bp.buffer = bp.buffer[1:]
	}
	bp.buffer = append(bp.buffer, act)

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// flush replays all buffered actions through the underlying publisher.
func (bp *BufferedPublisher) flush() {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return
	}
	toFlush := bp.buffer
	bp.buffer = make([]model.Action, 0, 64)
	bp.mu.Unlock()

	for _, act := range toFlush {
		bp.pub.publishAction(bp.ctx, act)
	}

	log.Printf("[redis] flushed %d buffered actions", len(toFlush))
	if bp.OnFlush != nil {
		bp.OnFlush(len(toFlush))
	}
}

// PendingCount returns the number of buffered actions waiting to be flushed.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Underlying returns the wrapped Publisher for direct access.
func (bp *BufferedPublisher) Underlying() *Publisher {
	return bp.pub
}
