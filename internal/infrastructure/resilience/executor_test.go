package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errVendorDown = errors.New("vendor unavailable")

func retryableClassifier(err error) ErrorClassification {
	return ErrorClassification{
		Retryable:     errors.Is(err, errVendorDown),
		RecordFailure: true,
	}
}

func TestExecuteRetriesRetryableVendorFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	err := exec.Execute(context.Background(), "openai.embed", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errVendorDown
		}
		return nil
	}, retryableClassifier)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errBadKey := errors.New("invalid api key")
	err := exec.Execute(context.Background(), "openai.embed", func(context.Context) error {
		attempts++
		return errBadKey
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errBadKey) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestFailFastConfigMakesSingleAttempt(t *testing.T) {
	cfg := FailFastConfig()
	cfg.BreakerEnabled = false
	exec := NewExecutor(cfg)

	attempts := 0
	err := exec.Execute(context.Background(), "cohere.rerank", func(context.Context) error {
		attempts++
		return errVendorDown
	}, retryableClassifier)
	if !errors.Is(err, errVendorDown) {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("rerank must not be retried, got %d attempts", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "cohere.rerank", func(context.Context) error {
			return errVendorDown
		}, classifier)
		if !errors.Is(err, errVendorDown) {
			t.Fatalf("expected vendor error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "cohere.rerank", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call the vendor")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !IsCircuitOpen(err) {
		t.Fatalf("IsCircuitOpen must recognize the open breaker")
	}
}

func TestBreakersAreIsolatedPerOperation(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})

	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "cohere.rerank", func(context.Context) error {
			return errVendorDown
		}, classifier)
	}

	// The rerank breaker is open; embedding must still get through.
	err := exec.Execute(context.Background(), "openai.embed", func(context.Context) error {
		return nil
	}, classifier)
	if err != nil {
		t.Fatalf("embed must not share the rerank breaker, got %v", err)
	}
}
