package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryDoSucceedsAfterFailures(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)
	calls := 0
	err := policy.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoExhausts(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond)
	calls := 0
	err := policy.Do(func() error {
		calls++
		return errors.New("persistent")
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoWithContextStopsOnCancel(t *testing.T) {
	policy := NewRetryPolicy(5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.DoWithContext(ctx, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after cancel")
	}
	if calls != 1 {
		t.Fatalf("expected a single call before cancel, got %d", calls)
	}
}

func TestCircuitBreakerOpensOnRateLimits(t *testing.T) {
	cb := NewCircuitBreaker(2, 100*time.Millisecond)
	if !cb.Allow() {
		t.Fatal("breaker should start closed")
	}

	cb.OnError(RateLimitError{Provider: "test"})
	if !cb.Allow() {
		t.Fatal("breaker opened below threshold")
	}
	cb.OnError(RateLimitError{Provider: "test"})
	if cb.Allow() {
		t.Fatal("breaker should be open at threshold")
	}

	time.Sleep(120 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("breaker should close after cooldown")
	}
}

func TestCircuitBreakerIgnoresOtherErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.OnError(errors.New("boom"))
	if !cb.Allow() {
		t.Fatal("non rate limit errors should not open the breaker")
	}
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	cb.OnError(RateLimitError{})
	cb.OnSuccess()
	cb.OnError(RateLimitError{})
	if !cb.Allow() {
		t.Fatal("success should reset the failure count")
	}
}
