package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(errTransient)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, errTransient) {
		t.Error("wrapped error should unwrap to the original")
	}
	if err.Error() != errTransient.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(errTransient) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		attempts  int
		failUntil int // calls that fail before success; -1 never succeeds
		retryable bool
		wantCalls int
		wantErr   bool
	}{
		{"success first try", 3, 0, true, 1, false},
		{"success after retry", 3, 1, true, 2, false},
		{"exhausted", 3, -1, true, 3, true},
		{"non-retryable stops", 3, -1, false, 1, true},
		{"single attempt", 1, -1, true, 1, true},
		{"zero attempts means one", 0, -1, true, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(ctx, tt.attempts, time.Millisecond, func() error {
				calls++
				if tt.failUntil >= 0 && calls > tt.failUntil {
					return nil
				}
				if tt.retryable {
					return Retryable(errTransient)
				}
				return errTransient
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryPolicyNoRetry(t *testing.T) {
	calls := 0
	err := NoRetry.Do(context.Background(), func() error {
		calls++
		return Retryable(errTransient)
	})
	if !errors.Is(err, errTransient) {
		t.Errorf("NoRetry.Do() error = %v, want %v", err, errTransient)
	}
	if calls != 1 {
		t.Errorf("NoRetry should call once: %d", calls)
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return Retryable(errTransient)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Should return context error: %v", err)
	}
}
