package redis

import (
	"errors"
	"testing"
	"time"
)

var errPublish = errors.New("publish failed")

func failTimes(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Do(func() error { return errPublish })
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CircuitBreaker
// ─────────────────────────────────────────────────────────────────────────────

func TestBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)
	if cb.CurrentState() != StateClosed {
		t.Errorf("new breaker state = %v, want closed", cb.CurrentState())
	}
}

func TestBreaker_TripsAfterFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)

	failTimes(cb, 2)
	if cb.CurrentState() != StateClosed {
		t.Fatal("two failures must not trip a limit-3 breaker")
	}

	failTimes(cb, 1)
	if cb.CurrentState() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.CurrentState())
	}

	ran := false
	err := cb.Do(func() error { ran = true; return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("open breaker returned %v, want ErrBreakerOpen", err)
	}
	if ran {
		t.Error("open breaker must not run the call")
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)

	failTimes(cb, 2)
	cb.Do(func() error { return nil })
	failTimes(cb, 2)

	if cb.CurrentState() != StateClosed {
		t.Errorf("state = %v, want closed (success must reset the streak)", cb.CurrentState())
	}
}

func TestBreaker_ClosesAfterCooldownSuccess(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)

	failTimes(cb, 1)
	if cb.CurrentState() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(30 * time.Millisecond)

	if err := cb.Do(func() error { return nil }); err != nil {
		t.Fatalf("trial call after cooldown returned %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("state after successful trial = %v, want closed", cb.CurrentState())
	}
}

func TestBreaker_FailureAfterCooldownReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)

	failTimes(cb, 1)
	time.Sleep(30 * time.Millisecond)
	cb.Do(func() error { return errPublish })

	if cb.CurrentState() != StateOpen {
		t.Fatalf("state after failed trial = %v, want open", cb.CurrentState())
	}
	// and the refreshed cooldown rejects the next call
	if err := cb.Do(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("reopened breaker returned %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_TransitionsReachObserver(t *testing.T) {
	var seen []State
	cb := NewCircuitBreaker(1, 20*time.Millisecond)
	cb.OnStateChange = func(from, to State) { seen = append(seen, to) }

	failTimes(cb, 1)
	time.Sleep(30 * time.Millisecond)
	cb.Do(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(seen) != len(want) {
		t.Fatalf("observed %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observed %v, want %v", seen, want)
		}
	}
}

func TestBreaker_StateGaugeValues(t *testing.T) {
	// The monitor exports the state numerically; the mapping is wired into
	// dashboards and must stay stable.
	if StateClosed != 0 || StateOpen != 1 || StateHalfOpen != 2 {
		t.Errorf("state values = %d/%d/%d, want 0/1/2", StateClosed, StateOpen, StateHalfOpen)
	}
	if StateHalfOpen.String() != "half-open" {
		t.Errorf("StateHalfOpen.String() = %q", StateHalfOpen.String())
	}
}
