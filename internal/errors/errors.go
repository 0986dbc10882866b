// Package errors provides domain-specific error types for netprobe.
//
// The traffic engine distinguishes three failure classes: an address
// that cannot be resolved (fatal to the run), a worker whose socket
// cannot be set up (fatal to that worker only) and a single failed
// send or connect attempt (never escalated).  The structured types
// below carry enough context to log each class usefully while still
// matching the sentinels with [Is].
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrInvalidAddress     = errors.New("invalid address")
	ErrSocketSetup        = errors.New("socket setup failed")
	ErrTransientSend      = errors.New("send attempt failed")
	ErrRunInProgress      = errors.New("a traffic run is already in progress")
	ErrNotConnected       = errors.New("not connected")
	ErrCircuitOpen        = errors.New("circuit breaker is open")
	ErrAlertNotConfigured = errors.New("alerting is not configured")
)

// ── Structured error types ───────────────────────────────────────────

// AddressError reports a host/port pair that cannot be turned into a
// connectable address.  It always matches [ErrInvalidAddress].
type AddressError struct {
	Host   string
	Port   string
	Reason string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid address %q port %q: %s", e.Host, e.Port, e.Reason)
}

func (e *AddressError) Unwrap() error { return ErrInvalidAddress }

// WorkerError is a failure inside one sender worker.  Setup failures
// end that worker; everything else is a transient attempt failure.
type WorkerError struct {
	Worker string // "tcp-3", "udp-0"
	Op     string // "listen", "dial", "write"
	Addr   string
	Err    error
	Setup  bool
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Worker, e.Op, e.Addr, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// Is lets callers match a WorkerError against the failure class it
// belongs to without inspecting the Setup flag.
func (e *WorkerError) Is(target error) bool {
	if e.Setup {
		return target == ErrSocketSetup
	}
	return target == ErrTransientSend
}

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "write", "lookup"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with gateway context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "channel"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag name without dashes
	Value   interface{} // the invalid value (nil if missing)
	Message string
	Hint    string // optional suggestion for the operator
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// InvalidAddress builds an [AddressError].
func InvalidAddress(host, port, reason string) *AddressError {
	return &AddressError{Host: host, Port: port, Reason: reason}
}

// SetupFailure wraps a worker's socket setup error.
func SetupFailure(worker, op, addr string, err error) *WorkerError {
	return &WorkerError{Worker: worker, Op: op, Addr: addr, Err: err, Setup: true}
}

// SendFailure wraps a single failed attempt inside a worker loop.
func SendFailure(worker, op, addr string, err error) *WorkerError {
	return &WorkerError{Worker: worker, Op: op, Addr: addr, Err: err}
}

// Wrap creates a NetworkError, detecting retryability from the
// underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTimeout reports whether err is a network timeout, which is the
// common outcome of a short connect attempt against a filtered port.
func IsTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Timeout()
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
