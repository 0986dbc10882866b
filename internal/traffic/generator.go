package traffic

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	ncerr "netprobe/internal/errors"
	"netprobe/internal/metrics"
	"netprobe/internal/transport"
	"netprobe/util"
)

// ── Defaults ─────────────────────────────────────────────────────────

const (
	// DefaultWorkers is the pool size of each worker variant.
	DefaultWorkers = 10

	// DefaultConnectTimeout bounds a single TCP connect attempt.
	DefaultConnectTimeout = 100 * time.Millisecond

	// DefaultPayloadSize is the size of every UDP datagram.
	DefaultPayloadSize = 1024
)

// Options configures a Generator.  Zero timeouts and sizes take the
// package defaults; nil transports fall back to plain TCP and UDP.
// Worker counts are used as given, so a pool can be disabled with 0.
type Options struct {
	TCPWorkers     int
	UDPWorkers     int
	ConnectTimeout time.Duration
	PayloadSize    int
	Dialer         transport.Dialer
	PacketDialer   transport.PacketDialer
	Logger         *util.Logger
}

// DefaultOptions returns the fixed-pool configuration: ten connectors,
// ten blasters, 100ms connects and 1 KiB datagrams.
func DefaultOptions() Options {
	return Options{
		TCPWorkers:     DefaultWorkers,
		UDPWorkers:     DefaultWorkers,
		ConnectTimeout: DefaultConnectTimeout,
		PayloadSize:    DefaultPayloadSize,
	}
}

// Report describes a finished run.  It is informational only.
type Report struct {
	RunID       string
	Target      TargetAddress
	Duration    time.Duration // requested
	Elapsed     time.Duration // actual, including the join
	Interrupted bool
	Stats       metrics.Snapshot
}

// Generator runs traffic bursts.  It owns the stop signal of the run in
// progress, if any, so that one process-wide interrupt handler can
// reach it through [Generator.Interrupt].
//
// Runs never overlap: a Run started while another is active fails with
// ErrRunInProgress.
type Generator struct {
	opts    Options
	current atomic.Pointer[StopSignal]
}

// NewGenerator returns a Generator with defaults filled in.
func NewGenerator(opts Options) *Generator {
	if opts.TCPWorkers < 0 {
		opts.TCPWorkers = 0
	}
	if opts.UDPWorkers < 0 {
		opts.UDPWorkers = 0
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.PayloadSize <= 0 {
		opts.PayloadSize = DefaultPayloadSize
	}
	if opts.Dialer == nil {
		opts.Dialer = &transport.TCPDialer{}
	}
	if opts.PacketDialer == nil {
		opts.PacketDialer = &transport.UDPDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &Generator{opts: opts}
}

// Options returns the effective configuration.
func (g *Generator) Options() Options { return g.opts }

// Running reports whether a run is in progress.
func (g *Generator) Running() bool { return g.current.Load() != nil }

// Interrupt requests the current run to stop.  With no run in progress
// it does nothing.  It reports whether a run was stopped by this call.
// Safe to call from any goroutine, including a signal handler.
func (g *Generator) Interrupt() bool {
	if sig := g.current.Load(); sig != nil {
		return sig.RequestStop()
	}
	return false
}

// Run drives the worker pools at p.Target until p.Duration elapses, the
// run is interrupted, or ctx is cancelled, then joins every worker
// before returning.  Worker failures are logged and counted, never
// returned.
func (g *Generator) Run(ctx context.Context, p RunParameters) (*Report, error) {
	if !p.Target.IsValid() {
		return nil, ncerr.InvalidAddress("", "", "target was not resolved")
	}
	if p.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", p.Duration)
	}
	if g.opts.TCPWorkers+g.opts.UDPWorkers == 0 {
		return nil, fmt.Errorf("no workers configured")
	}

	sig := NewStopSignal()
	sig.Activate()
	if !g.current.CompareAndSwap(nil, sig) {
		return nil, ncerr.ErrRunInProgress
	}
	defer g.current.CompareAndSwap(sig, nil)

	runID := uuid.NewString()
	log := g.opts.Logger.With("run", runID[:8])
	stats := metrics.New()

	start := time.Now()
	deadline := start.Add(p.Duration)

	log.Verbose("starting %d tcp and %d udp workers against %s for %v",
		g.opts.TCPWorkers, g.opts.UDPWorkers, p.Target, p.Duration)

	var wg sync.WaitGroup
	for _, w := range g.workers(p.Target, log, stats) {
		wg.Add(1)
		stats.WorkerStarted()
		go func(w Worker) {
			defer wg.Done()
			defer stats.WorkerExited()
			w.Run(ctx, sig, deadline)
		}(w)
	}

	interrupted := wait(ctx, sig, deadline)
	if !sig.RequestStop() {
		interrupted = true // stopped through Interrupt
	}
	wg.Wait()

	report := &Report{
		RunID:       runID,
		Target:      p.Target,
		Duration:    p.Duration,
		Elapsed:     time.Since(start),
		Interrupted: interrupted,
		Stats:       stats.Snapshot(),
	}
	log.Verbose("all workers joined after %v", report.Elapsed.Truncate(time.Millisecond))
	if log.Level() >= util.LogDebug {
		log.Debug("final counters: %s", stats.JSON())
	}
	return report, nil
}

// wait blocks until the deadline, an interrupt or ctx cancellation.  It
// reports whether the run ended early.
func wait(ctx context.Context, sig *StopSignal, deadline time.Time) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-timer.C:
		return false
	case <-sig.Done():
		return true
	case <-ctx.Done():
		return true
	}
}

func (g *Generator) workers(target TargetAddress, log *util.Logger, stats *metrics.Collector) []Worker {
	out := make([]Worker, 0, g.opts.TCPWorkers+g.opts.UDPWorkers)
	for i := 0; i < g.opts.TCPWorkers; i++ {
		out = append(out, &TCPConnector{
			ID:      i,
			Target:  target,
			Dialer:  g.opts.Dialer,
			Timeout: g.opts.ConnectTimeout,
			Logger:  log,
			Metrics: stats,
		})
	}

	// Blasters only read the payload, so one buffer serves them all.
	payload := make([]byte, g.opts.PayloadSize)
	for i := 0; i < g.opts.UDPWorkers; i++ {
		out = append(out, &UDPBlaster{
			ID:      i,
			Target:  target,
			Dialer:  g.opts.PacketDialer,
			Payload: payload,
			Logger:  log,
			Metrics: stats,
		})
	}
	return out
}
