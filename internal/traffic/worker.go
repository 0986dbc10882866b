package traffic

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	ncerr "netprobe/internal/errors"
	"netprobe/internal/metrics"
	"netprobe/internal/transport"
	"netprobe/util"
)

// Worker is one independently scheduled sender.  Run loops until the
// signal stops, the deadline passes or ctx is cancelled, checking all
// three between attempts, and releases every socket it opened before
// returning.  Failures never escape Run.
type Worker interface {
	Name() string
	Run(ctx context.Context, sig *StopSignal, deadline time.Time)
}

// running is the loop condition shared by both worker variants.
func running(ctx context.Context, sig *StopSignal, deadline time.Time) bool {
	return sig.IsActive() && time.Now().Before(deadline) && ctx.Err() == nil
}

// failureNotice throttles a worker's error log lines: the first few
// failures are logged, then at most one per second.  Counting is the
// metrics collector's job and is never throttled.
type failureNotice struct {
	every  rate.Sometimes
	logger *util.Logger
	stats  *metrics.Collector
}

func newFailureNotice(logger *util.Logger, stats *metrics.Collector) *failureNotice {
	return &failureNotice{
		every:  rate.Sometimes{First: 3, Interval: time.Second},
		logger: logger,
		stats:  stats,
	}
}

// report records err as the run's latest error and logs it unless
// throttled.  Timeouts are the normal outcome against a filtered port,
// so they only show at -vv.
func (n *failureNotice) report(err error) {
	n.stats.RecordError(err.Error())
	n.every.Do(func() {
		if ncerr.IsTimeout(err) {
			n.logger.Verbose("%v", err)
		} else {
			n.logger.Warn("%v", err)
		}
	})
}

// ── TCP connector ────────────────────────────────────────────────────

// TCPConnector repeatedly opens and immediately closes TCP connections
// to the target.  Every outcome, refusal and timeout included, is
// treated as transient.
type TCPConnector struct {
	ID      int
	Target  TargetAddress
	Dialer  transport.Dialer
	Timeout time.Duration // per attempt
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Name identifies the worker in log lines.
func (w *TCPConnector) Name() string { return fmt.Sprintf("tcp-%d", w.ID) }

// Run implements [Worker].
func (w *TCPConnector) Run(ctx context.Context, sig *StopSignal, deadline time.Time) {
	name := w.Name()
	addr := w.Target.String()
	notice := newFailureNotice(w.Logger, w.Metrics)

	for running(ctx, sig, deadline) {
		timeout := w.Timeout
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
		if timeout <= 0 {
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := w.Dialer.Dial(attemptCtx, "tcp", addr)
		cancel()

		if err != nil {
			w.Metrics.TCPAttempt(false)
			if sig.IsActive() {
				notice.report(ncerr.SendFailure(name, "dial", addr, err))
			}
			continue
		}
		conn.Close()
		w.Metrics.TCPAttempt(true)
	}
}

// ── UDP blaster ──────────────────────────────────────────────────────

// UDPBlaster binds one ephemeral socket and sends a fixed payload to
// the target as fast as the kernel accepts it, with no acknowledgement
// and no retry.
type UDPBlaster struct {
	ID      int
	Target  TargetAddress
	Dialer  transport.PacketDialer
	Payload []byte
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Name identifies the worker in log lines.
func (w *UDPBlaster) Name() string { return fmt.Sprintf("udp-%d", w.ID) }

// Run implements [Worker].  A socket that cannot be opened ends this
// worker only.
func (w *UDPBlaster) Run(ctx context.Context, sig *StopSignal, deadline time.Time) {
	name := w.Name()
	network := "udp6"
	if w.Target.Is4() {
		network = "udp4"
	}

	conn, err := w.Dialer.ListenPacket(ctx, network)
	if err != nil {
		serr := ncerr.SetupFailure(name, "listen", network, err)
		w.Metrics.SetupFailed(serr.Error())
		w.Logger.Error("%v", serr)
		return
	}
	defer conn.Close()

	// A send blocked on a full buffer must not outlive the run.
	conn.SetWriteDeadline(deadline) //nolint:errcheck

	dst := net.UDPAddrFromAddrPort(w.Target.AddrPort())
	notice := newFailureNotice(w.Logger, w.Metrics)

	for running(ctx, sig, deadline) {
		n, err := conn.WriteTo(w.Payload, dst)
		if err != nil {
			w.Metrics.DatagramFailed()
			if sig.IsActive() {
				notice.report(ncerr.SendFailure(name, "write", dst.String(), err))
			}
			continue
		}
		w.Metrics.DatagramSent(n)
	}
}
