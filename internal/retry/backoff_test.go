package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastBackoff(attempts int) *Backoff {
	return &Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2, Attempts: attempts}
}

func TestBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := fastBackoff(5).Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestBackoff_Permanent(t *testing.T) {
	fatal := errors.New("401 unauthorized")
	calls := 0
	err := fastBackoff(5).Do(context.Background(), func(context.Context, int) error {
		calls++
		return Permanent(fatal)
	})
	if err != fatal {
		t.Errorf("err = %v, want the unwrapped permanent error", err)
	}
	if calls != 1 {
		t.Errorf("permanent error should stop after 1 call, got %d", calls)
	}
}

func TestBackoff_Exhausted(t *testing.T) {
	last := errors.New("503")
	calls := 0
	err := fastBackoff(3).Do(context.Background(), func(context.Context, int) error {
		calls++
		return last
	})

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if ex.Attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", ex.Attempts, calls)
	}
	if !errors.Is(err, last) {
		t.Error("ExhaustedError should unwrap to the last failure")
	}
}

func TestBackoff_ContextCancel(t *testing.T) {
	b := &Backoff{Initial: time.Hour, Attempts: 10}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Do(ctx, func(context.Context, int) error { return errors.New("down") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the pause")
	}
}

func TestBackoff_OnRetry(t *testing.T) {
	var seen []int
	b := fastBackoff(3)
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		if wait <= 0 {
			t.Errorf("wait = %v", wait)
		}
	}
	b.Do(context.Background(), func(context.Context, int) error { return errors.New("x") }) //nolint:errcheck

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := &Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{50, time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := &Backoff{Jitter: 0.25}
	base := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		got := b.jitter(base)
		if got < 75*time.Millisecond || got > 125*time.Millisecond {
			t.Fatalf("jitter(%v) = %v, outside ±25%%", base, got)
		}
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if IsPermanent(errors.New("plain")) {
		t.Error("plain error reported as permanent")
	}
	if !IsPermanent(fmt.Errorf("wrapped: %w", Permanent(errors.New("x")))) {
		t.Error("wrapped permanent error not detected")
	}
}
