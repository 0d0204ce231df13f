package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func failing() error { return errUpstream }
func succeeding() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute, Component: "weather_api"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, failing); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d error = %v, want upstream error", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open after %d failures", cb.State(), 3)
	}

	err := cb.Call(ctx, succeeding)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Call() on open circuit error = %v, want ErrOpen", err)
	}
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := cb.Call(ctx, succeeding); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	cb.Call(ctx, failing)
	cb.Call(ctx, failing)
	cb.Call(ctx, succeeding)
	cb.Call(ctx, failing)
	cb.Call(ctx, failing)

	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed (failures interleaved with success)", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond})
	ctx := context.Background()

	cb.Call(ctx, failing)
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(ctx, succeeding); err != nil {
		t.Fatalf("probe call error = %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open after one probe success", cb.State())
	}

	if err := cb.Call(ctx, succeeding); err != nil {
		t.Fatalf("second probe error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed after success threshold", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond})
	ctx := context.Background()

	cb.Call(ctx, failing)
	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(ctx, failing); !errors.Is(err, errUpstream) {
		t.Fatalf("probe call error = %v, want upstream error", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open after half-open probe failure", cb.State())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := New(Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	cb.Call(ctx, failing)
	time.Sleep(20 * time.Millisecond)
	cb.Call(ctx, succeeding)

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
