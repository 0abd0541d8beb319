package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want nil after 1", err, calls)
	}
}

func TestRetryOnceForRecoverable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(1), func() error {
		calls++
		return apperrors.New(apperrors.RecognitionNoSpeech, "silence")
	})
	if !apperrors.IsCode(err, apperrors.RecognitionNoSpeech) {
		t.Errorf("Retry() = %v, want no-speech error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + one restart)", calls)
	}
}

func TestRetryNonRetryableError(t *testing.T) {
	calls := 0
	fatal := apperrors.New(apperrors.RecognitionNotAllowed, "denied")
	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("Retry() = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		return apperrors.New(apperrors.Network, "down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, JitterFactor: 0}
	if d := backoffDelay(cfg, 0); d != 100*time.Millisecond {
		t.Errorf("attempt 0 delay = %v, want 100ms", d)
	}
	if d := backoffDelay(cfg, 1); d != 200*time.Millisecond {
		t.Errorf("attempt 1 delay = %v, want 200ms", d)
	}
	if d := backoffDelay(cfg, 5); d != 300*time.Millisecond {
		t.Errorf("attempt 5 delay = %v, want 300ms (capped)", d)
	}
}
