package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func retryOnlyConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())
	errFlaky := errors.New("flaky upstream")

	calls := 0
	err := exec.Execute(context.Background(), "analyzer.generate", func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteFailsFastOnNonRetryableError(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())
	errBadRequest := errors.New("bad request")

	calls := 0
	err := exec.Execute(context.Background(), "analyzer.generate", func(context.Context) error {
		calls++
		return errBadRequest
	}, func(error) ErrorClassification {
		return ErrorClassification{}
	})
	if !errors.Is(err, errBadRequest) {
		t.Fatalf("expected the upstream error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig())
	errFlaky := errors.New("flaky upstream")

	calls := 0
	err := exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
		calls++
		return errFlaky
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected the upstream error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected all 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsRetryingWhenContextEnds(t *testing.T) {
	cfg := retryOnlyConfig()
	cfg.RetryInitialBackoff = 50 * time.Millisecond
	cfg.RetryMaxBackoff = 50 * time.Millisecond
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errFlaky := errors.New("flaky upstream")

	calls := 0
	err := exec.Execute(ctx, "queue.publish", func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected the upstream error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry after cancellation, got %d calls", calls)
	}
}

func TestExecuteOpensBreakerAndShortCircuits(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("upstream down")
	counting := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "analyzer.generate", func(context.Context) error {
			return errDown
		}, counting)
		if !errors.Is(err, errDown) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "analyzer.generate", func(context.Context) error {
		t.Fatal("open breaker must not invoke the operation")
		return nil
	}, counting)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if !IsCircuitOpen(err) {
		t.Fatalf("IsCircuitOpen should report the breaker error")
	}
}

func TestExecuteKeepsBreakersPerOperation(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Second,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("upstream down")
	counting := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "analyzer.generate", func(context.Context) error {
			return errDown
		}, counting)
	}

	err := exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
		return nil
	}, counting)
	if err != nil {
		t.Fatalf("an analyzer outage must not open the queue breaker: %v", err)
	}
}

func TestSanitizedFillsDefaults(t *testing.T) {
	got := Config{}.sanitized()
	def := DefaultConfig()

	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("RetryMaxAttempts = %d, want %d", got.RetryMaxAttempts, def.RetryMaxAttempts)
	}
	if got.RetryInitialBackoff != def.RetryInitialBackoff {
		t.Fatalf("RetryInitialBackoff = %v, want %v", got.RetryInitialBackoff, def.RetryInitialBackoff)
	}
	if got.RetryMaxBackoff < got.RetryInitialBackoff {
		t.Fatalf("RetryMaxBackoff %v below initial backoff %v", got.RetryMaxBackoff, got.RetryInitialBackoff)
	}
	if got.BreakerMinRequests != def.BreakerMinRequests {
		t.Fatalf("BreakerMinRequests = %d, want %d", got.BreakerMinRequests, def.BreakerMinRequests)
	}
}
