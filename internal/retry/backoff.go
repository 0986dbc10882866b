// Package retry provides exponential backoff and a circuit breaker for
// outbound calls that may fail transiently, such as alert delivery.
// The traffic engine never retries: its workers simply try again on
// their next loop iteration.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.  Do returns the inner
// error at once and a Breaker does not count it as a failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with [Permanent].
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff retries an operation with exponentially growing pauses.
type Backoff struct {
	Initial    time.Duration // first pause (default 500ms)
	Max        time.Duration // cap on any pause (default 10s)
	Multiplier float64       // growth per attempt (default 2)
	Attempts   int           // total tries including the first (default 3)
	Jitter     float64       // ± fraction applied to each pause, 0-1

	// OnRetry, if set, is called before each pause.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultBackoff suits an interactive operator waiting on one request.
func DefaultBackoff() *Backoff {
	return &Backoff{
		Initial:    500 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2,
		Attempts:   3,
		Jitter:     0.2,
	}
}

// Delay returns the un-jittered pause after the given 1-based attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	initial, maxDelay, mult := b.Initial, b.Max, b.Multiplier
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	if mult < 1 {
		mult = 2
	}

	d := float64(initial)
	for i := 1; i < attempt && d < float64(maxDelay); i++ {
		d *= mult
	}
	if d >= float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a [Permanent] error, the
// attempt budget runs out or ctx is done.  fn receives the 1-based
// attempt number.
func (b *Backoff) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 3
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if attempt >= attempts {
			return &ExhaustedError{Attempts: attempt, Last: err}
		}

		wait := b.jitter(b.Delay(attempt))
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
}

func (b *Backoff) jitter(d time.Duration) time.Duration {
	if b.Jitter <= 0 {
		return d
	}
	frac := b.Jitter
	if frac > 1 {
		frac = 1
	}
	delta := (rand.Float64()*2 - 1) * frac * float64(d)
	if out := time.Duration(float64(d) + delta); out > time.Millisecond {
		return out
	}
	return time.Millisecond
}
