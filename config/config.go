// Package config defines the runtime configuration for netprobe, the
// persisted operator settings, and helpers for parsing ports and tunnel
// specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "netprobe/internal/errors"
)

// Config holds every tuneable for a single netprobe invocation.
type Config struct {
	// ── Mode ─────────────────────────────────────────────────────────
	Generate  bool   // -g: generate traffic and exit
	PingHost  string // --ping
	TraceHost string // --trace

	// ── Run parameters (zero = take from settings) ───────────────────
	Target   string
	Port     int // 0 means "not given"
	Duration int // seconds

	// ── Traffic engine ───────────────────────────────────────────────
	TCPWorkers     int
	UDPWorkers     int
	ConnectTimeout time.Duration
	PayloadSize    int
	SourceAddress  string
	NoDNS          bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Diagnostics ──────────────────────────────────────────────────
	PingCount      int
	PingPrivileged bool // raw ICMP sockets instead of unprivileged UDP ping

	// ── Settings and alerting ────────────────────────────────────────
	ConfigPath string
	Alert      bool
	AlertProxy string // socks5:// URL for Telegram API traffic

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// New returns a Config populated with the defaults from defaults.go.
func New() *Config {
	return &Config{
		TCPWorkers:     DefaultWorkers,
		UDPWorkers:     DefaultWorkers,
		ConnectTimeout: DefaultConnectTimeout,
		PayloadSize:    DefaultPayloadSize,
		PingCount:      DefaultPingCount,
		ConfigPath:     DefaultConfigPath,
		Verbose:        DefaultVerbosity,
	}
}

// Interactive reports whether no one-shot mode was requested.
func (c *Config) Interactive() bool {
	return !c.Generate && c.PingHost == "" && c.TraceHost == ""
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port in 0-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 0-65535", port)
	}
	return port, nil
}

// ParseSeconds accepts a positive whole number of seconds.
func ParseSeconds(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: expected whole seconds", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %d", n)
	}
	if int64(n) > MaxDurationSeconds {
		return 0, fmt.Errorf("duration %d exceeds the maximum of %d seconds", n, MaxDurationSeconds)
	}
	return n, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec, if set, into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "example: -T admin@bastion.example.com:2222",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	modes := 0
	for _, on := range []bool{c.Generate, c.PingHost != "", c.TraceHost != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return &ncerr.ConfigError{
			Field:   "generate",
			Message: "-g, --ping and --trace are mutually exclusive",
			Hint:    "run one diagnostic at a time, or omit all three for the interactive shell",
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 0-65535"}
	}
	if c.Duration < 0 {
		return &ncerr.ConfigError{
			Field:   "duration",
			Value:   c.Duration,
			Message: "must be positive",
			Hint:    "the duration is given in whole seconds, e.g. -d 10",
		}
	}
	if int64(c.Duration) > MaxDurationSeconds {
		return &ncerr.ConfigError{
			Field:   "duration",
			Value:   c.Duration,
			Message: fmt.Sprintf("exceeds the maximum of %d seconds", MaxDurationSeconds),
		}
	}

	if c.TCPWorkers < 0 {
		return &ncerr.ConfigError{Field: "tcp-workers", Value: c.TCPWorkers, Message: "must not be negative"}
	}
	if c.UDPWorkers < 0 {
		return &ncerr.ConfigError{Field: "udp-workers", Value: c.UDPWorkers, Message: "must not be negative"}
	}
	if c.TCPWorkers+c.UDPWorkers == 0 {
		return &ncerr.ConfigError{
			Field:   "tcp-workers",
			Value:   0,
			Message: "at least one worker is required",
			Hint:    "use --tcp-workers or --udp-workers to enable a pool",
		}
	}
	if c.TunnelEnabled && c.TCPWorkers == 0 {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "tunnelled runs carry TCP only, but --tcp-workers is 0",
		}
	}

	if c.ConnectTimeout <= 0 {
		return &ncerr.ConfigError{
			Field:   "connect-timeout",
			Value:   c.ConnectTimeout,
			Message: "must be positive",
			Hint:    "the timeout is given in milliseconds, e.g. --connect-timeout 100",
		}
	}
	if c.PayloadSize < 1 || c.PayloadSize > MaxPayloadSize {
		return &ncerr.ConfigError{
			Field:   "payload-size",
			Value:   c.PayloadSize,
			Message: fmt.Sprintf("must be between 1 and %d bytes", MaxPayloadSize),
		}
	}

	if c.PingCount < 1 {
		return &ncerr.ConfigError{Field: "count", Value: c.PingCount, Message: "must be at least 1"}
	}
	if c.AlertProxy != "" && !strings.HasPrefix(c.AlertProxy, "socks5") {
		return &ncerr.ConfigError{
			Field:   "alert-proxy",
			Value:   c.AlertProxy,
			Message: "only SOCKS5 proxies are supported",
			Hint:    "example: --alert-proxy socks5://127.0.0.1:1080",
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if c.ConfigPath == "" {
		return &ncerr.ConfigError{Field: "config", Message: "settings file path is empty"}
	}

	return nil
}
