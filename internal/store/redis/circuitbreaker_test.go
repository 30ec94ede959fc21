package redis

import (
	"errors"
	"testing"
	"time"
)

var errProbe = errors.New("redis down")

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	if cb.CurrentState() != StateClosed {
		t.Errorf("new breaker state = %v, want closed", cb.CurrentState())
	}
}

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errProbe }); err != errProbe {
			t.Fatalf("call %d: err = %v, want errProbe", i, err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.CurrentState())
	}

	// While open, calls are rejected without running.
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("open breaker err = %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Error("open breaker must not run the call")
	}
}

func TestCircuitBreaker_ProbeClosesAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errProbe })
	}
	if cb.CurrentState() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe err = %v, want nil", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("state after successful probe = %v, want closed", cb.CurrentState())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errProbe })
	}

	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return errProbe })

	if cb.CurrentState() != StateOpen {
		t.Errorf("state after failed probe = %v, want open", cb.CurrentState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return nil })

	// Two more failures stay under the threshold after the reset.
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })

	if cb.CurrentState() != StateClosed {
		t.Errorf("state = %v, want closed (success resets the count)", cb.CurrentState())
	}
	if cb.Failures() != 2 {
		t.Errorf("failures = %d, want 2", cb.Failures())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	cb.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	cb.Execute(func() error { return errProbe })
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Fatalf("transitions after trip = %v, want [open]", transitions)
	}

	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return nil })

	if len(transitions) != 3 || transitions[1] != StateHalfOpen || transitions[2] != StateClosed {
		t.Errorf("transitions = %v, want [open half-open closed]", transitions)
	}
}
