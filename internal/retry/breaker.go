package retry

import (
	"fmt"
	"sync"
	"time"

	ncerr "netprobe/internal/errors"
)

// State is a breaker's operating state.
type State int

const (
	Closed   State = iota // calls pass through
	Open                  // calls are rejected
	HalfOpen              // one probe call is allowed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a service after Threshold consecutive
// failures, then lets a single probe through once Cooldown has passed.
// Errors marked [Permanent] say nothing about the service's health and
// are not counted.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	cooldown  time.Duration

	now func() time.Time
}

// NewBreaker returns a closed breaker.  Non-positive arguments take the
// defaults of 3 failures and 30 seconds.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// State returns the current state, moving Open to HalfOpen if the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Execute runs fn unless the breaker is open.  A rejected call returns
// an error matching ErrCircuitOpen.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// ── internal ─────────────────────────────────────────────────────────

func (b *Breaker) refresh() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = HalfOpen
		b.probing = false
	}
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()

	switch b.state {
	case Open:
		wait := b.cooldown - b.now().Sub(b.openedAt)
		return fmt.Errorf("%w: %d consecutive failures, retry in %v",
			ncerr.ErrCircuitOpen, b.failures, wait.Round(time.Second))
	case HalfOpen:
		if b.probing {
			return fmt.Errorf("%w: probe in flight", ncerr.ErrCircuitOpen)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.state == HalfOpen
	b.probing = false

	if err == nil || IsPermanent(err) {
		b.failures = 0
		b.state = Closed
		return
	}

	b.failures++
	if wasProbe || b.failures >= b.threshold {
		b.state = Open
		b.openedAt = b.now()
	}
}
