package config

import (
	"math"
	"time"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the settings file, and environment variable
// loading.

const (
	// DefaultPort is the target port when neither flag nor settings
	// supply one.
	DefaultPort = 80

	// DefaultDurationSeconds is the traffic run length when neither
	// flag nor settings supply one.
	DefaultDurationSeconds = 10

	// MaxDurationSeconds is the longest run a time.Duration can hold.
	MaxDurationSeconds = math.MaxInt64 / int64(time.Second)

	// DefaultWorkers is the size of each sender pool.
	DefaultWorkers = 10

	// DefaultConnectTimeout bounds a single TCP connect attempt.
	DefaultConnectTimeout = 100 * time.Millisecond

	// DefaultPayloadSize is the size of every UDP datagram.
	DefaultPayloadSize = 1024

	// MaxPayloadSize is the largest UDP payload over IPv4.
	MaxPayloadSize = 65507

	// DefaultConfigPath is the settings file, relative to the working
	// directory.
	DefaultConfigPath = "netprobe.yaml"

	// DefaultVerbosity prints warnings and informational notices.
	DefaultVerbosity = 1

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultSSHTimeout bounds the SSH handshake with a tunnel gateway.
	DefaultSSHTimeout = 30 * time.Second

	// DefaultSSHKeepAlive is the interval between gateway keepalive probes.
	DefaultSSHKeepAlive = 15 * time.Second

	// DefaultPingCount is the number of echo requests per reachability
	// check.
	DefaultPingCount = 4

	// DefaultPingTimeout bounds a whole reachability check.
	DefaultPingTimeout = 10 * time.Second

	// DefaultAlertTimeout bounds one Telegram API request.
	DefaultAlertTimeout = 10 * time.Second

	// DefaultAlertAttempts is how many times a failed alert is retried.
	DefaultAlertAttempts = 3
)
