package traffic

import "sync/atomic"

const (
	signalIdle int32 = iota
	signalActive
	signalStopped
)

// StopSignal is the shared flag one run's workers poll.  A fresh
// signal is created for every run and never reused.
//
// The orchestrator calls Activate once before spawning workers;
// RequestStop may be called any number of times from any goroutine and
// performs the active → stopped transition exactly once.  Workers only
// call IsActive.  Cessation is eventual: a worker may finish the
// attempt it is in after RequestStop returns.
type StopSignal struct {
	state atomic.Int32
	done  chan struct{}
}

// NewStopSignal returns an idle signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Activate moves an idle signal to active.  It has no effect on a
// signal that was already activated or stopped.
func (s *StopSignal) Activate() {
	s.state.CompareAndSwap(signalIdle, signalActive)
}

// RequestStop clears the signal.  It reports whether this call was the
// one that performed the transition; later calls are no-ops.
func (s *StopSignal) RequestStop() bool {
	if !s.state.CompareAndSwap(signalActive, signalStopped) {
		return false
	}
	close(s.done)
	return true
}

// IsActive reports whether workers should keep sending.
func (s *StopSignal) IsActive() bool {
	return s.state.Load() == signalActive
}

// Done is closed when the signal stops.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}
