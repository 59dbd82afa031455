package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cb := New("exchange", nil)
	if cb == nil {
		t.Fatal("Expected circuit breaker to be created")
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected initial state Closed, got %v", cb.State())
	}

	if cb.Failures() != 0 {
		t.Errorf("Expected initial failures 0, got %d", cb.Failures())
	}
}

func TestExecuteSuccess(t *testing.T) {
	cb := New("exchange", DefaultConfig())
	ctx := context.Background()

	err := cb.Execute(ctx, func() error {
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected state Closed, got %v", cb.State())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	config := &Config{
		MaxFailures:         3,
		Timeout:             100 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	}
	cb := New("aggregator", config)
	ctx := context.Background()

	testErr := errors.New("fetch failed")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, func() error { return testErr }); err != testErr {
			t.Errorf("Expected fetch error, got %v", err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected state Closed after 2 failures, got %v", cb.State())
	}

	if err := cb.Execute(ctx, func() error { return testErr }); err != testErr {
		t.Errorf("Expected fetch error, got %v", err)
	}

	if cb.State() != StateOpen {
		t.Errorf("Expected state Open after 3 failures, got %v", cb.State())
	}

	// While open, calls are rejected without invoking fn.
	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn should not be called while circuit is open")
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	config := &Config{
		MaxFailures:         1,
		Timeout:             10 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	}
	cb := New("aggregator", config)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("down") })
	if cb.State() != StateOpen {
		t.Fatalf("Expected state Open, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// Successful probe closes the circuit again.
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Errorf("Expected probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected state Closed after recovery, got %v", cb.State())
	}
}

func TestReset(t *testing.T) {
	config := &Config{MaxFailures: 1, Timeout: time.Minute, MaxHalfOpenRequests: 1}
	cb := New("exchange", config)

	_ = cb.Execute(context.Background(), func() error { return errors.New("down") })
	if cb.State() != StateOpen {
		t.Fatalf("Expected state Open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Expected state Closed after reset, got %v", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected failures 0 after reset, got %d", cb.Failures())
	}
}
