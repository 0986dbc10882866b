// Package traffic is the load-generation engine: a fixed pool of TCP
// connectors and UDP blasters driven against one target for a bounded
// wall-clock duration, with cooperative shutdown on deadline or
// external interrupt.
//
// Lifecycle of one run (see [Generator.Run]):
//
//	Idle → Active (workers spawned) → Stopping (stop requested)
//	     → Joined (every worker exited) → Idle
package traffic

import (
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
	"time"

	ncerr "netprobe/internal/errors"
)

// TargetAddress is a resolved destination.  The zero value is invalid.
type TargetAddress struct {
	ap netip.AddrPort
}

// Resolve validates host and port and returns the address the workers
// will send to.  host must be a literal IP address; hostnames are the
// caller's job (see util.LookupHost).  Resolve does no I/O.
func Resolve(host string, port int) (TargetAddress, error) {
	portText := strconv.Itoa(port)
	if port < 0 || port > 65535 {
		return TargetAddress{}, ncerr.InvalidAddress(host, portText, "port out of range 0-65535")
	}

	h := strings.TrimSpace(host)
	if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
		h = h[1 : len(h)-1]
	}
	if h == "" {
		return TargetAddress{}, ncerr.InvalidAddress(host, portText, "empty host")
	}

	addr, err := netip.ParseAddr(h)
	if err != nil {
		return TargetAddress{}, ncerr.InvalidAddress(host, portText, "not an IP address")
	}
	if addr.Zone() != "" {
		return TargetAddress{}, ncerr.InvalidAddress(host, portText, "zoned addresses are not supported")
	}

	return TargetAddress{ap: netip.AddrPortFrom(addr.Unmap(), uint16(port))}, nil
}

// ParseTarget is Resolve for a port given as operator text.
func ParseTarget(host, port string) (TargetAddress, error) {
	n, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return TargetAddress{}, ncerr.InvalidAddress(host, port, "port is not a number")
	}
	if n < 0 || n > 65535 {
		return TargetAddress{}, ncerr.InvalidAddress(host, port, "port out of range 0-65535")
	}
	return Resolve(host, n)
}

// AddrPort returns the underlying address.
func (t TargetAddress) AddrPort() netip.AddrPort { return t.ap }

// IsValid reports whether t came from a successful Resolve.
func (t TargetAddress) IsValid() bool { return t.ap.IsValid() }

// Is4 reports whether the target is an IPv4 address.
func (t TargetAddress) Is4() bool { return t.ap.Addr().Is4() }

// String returns "ip:port", bracketing IPv6.
func (t TargetAddress) String() string { return t.ap.String() }

// RunParameters describes one traffic run.  Duration must be positive.
type RunParameters struct {
	Target   TargetAddress
	Duration time.Duration
}

// maxSeconds is the longest run a time.Duration can hold.
const maxSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Seconds converts the external whole-second duration contract.  Counts
// that would overflow time.Duration are refused.
func Seconds(n uint64) (time.Duration, error) {
	if n > maxSeconds {
		return 0, fmt.Errorf("duration %d exceeds the maximum of %d seconds", n, maxSeconds)
	}
	return time.Duration(n) * time.Second, nil
}
