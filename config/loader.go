package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)
//
// The settings file is separate: it only fills run parameters that are
// still unset after all three layers.

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the NETPROBE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("NETPROBE_TARGET"); v != "" {
		cfg.Target = v
	}
	if v := envInt("NETPROBE_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("NETPROBE_DURATION"); v > 0 {
		cfg.Duration = v
	}
	if envBool("NETPROBE_NO_DNS") {
		cfg.NoDNS = true
	}

	// Traffic engine
	if v, ok := envCount("NETPROBE_TCP_WORKERS"); ok {
		cfg.TCPWorkers = v
	}
	if v, ok := envCount("NETPROBE_UDP_WORKERS"); ok {
		cfg.UDPWorkers = v
	}
	if v := envInt("NETPROBE_CONNECT_TIMEOUT"); v > 0 {
		cfg.ConnectTimeout = millisDuration(v)
	}
	if v := envInt("NETPROBE_PAYLOAD_SIZE"); v > 0 {
		cfg.PayloadSize = v
	}
	if v := os.Getenv("NETPROBE_SOURCE"); v != "" {
		cfg.SourceAddress = v
	}

	// SSH tunnel
	if v := os.Getenv("NETPROBE_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("NETPROBE_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("NETPROBE_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("NETPROBE_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("NETPROBE_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("NETPROBE_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Settings and alerting
	if v := os.Getenv("NETPROBE_CONFIG"); v != "" {
		cfg.ConfigPath = v
	}
	if envBool("NETPROBE_ALERT") {
		cfg.Alert = true
	}
	if v := os.Getenv("NETPROBE_ALERT_PROXY"); v != "" {
		cfg.AlertProxy = v
	}

	// Diagnostics
	if v := envInt("NETPROBE_PING_COUNT"); v > 0 {
		cfg.PingCount = v
	}
	if envBool("NETPROBE_PING_PRIVILEGED") {
		cfg.PingPrivileged = true
	}

	// Output
	if v := envInt("NETPROBE_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// envCount is envInt for values where 0 is meaningful.
func envCount(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func millisDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
