package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_RunParameters(t *testing.T) {
	t.Setenv("NETPROBE_TARGET", "192.0.2.7")
	t.Setenv("NETPROBE_PORT", "8080")
	t.Setenv("NETPROBE_DURATION", "30")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.Target != "192.0.2.7" {
		t.Errorf("Target = %q", cfg.Target)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Duration != 30 {
		t.Errorf("Duration = %d, want 30", cfg.Duration)
	}
}

func TestLoadFromEnv_Engine(t *testing.T) {
	t.Setenv("NETPROBE_TCP_WORKERS", "4")
	t.Setenv("NETPROBE_UDP_WORKERS", "0")
	t.Setenv("NETPROBE_CONNECT_TIMEOUT", "250")
	t.Setenv("NETPROBE_PAYLOAD_SIZE", "512")
	t.Setenv("NETPROBE_SOURCE", "127.0.0.1")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.TCPWorkers != 4 {
		t.Errorf("TCPWorkers = %d, want 4", cfg.TCPWorkers)
	}
	if cfg.UDPWorkers != 0 {
		t.Errorf("UDPWorkers = %d, want 0", cfg.UDPWorkers)
	}
	if cfg.ConnectTimeout != 250*time.Millisecond {
		t.Errorf("ConnectTimeout = %v, want 250ms", cfg.ConnectTimeout)
	}
	if cfg.PayloadSize != 512 {
		t.Errorf("PayloadSize = %d, want 512", cfg.PayloadSize)
	}
	if cfg.SourceAddress != "127.0.0.1" {
		t.Errorf("SourceAddress = %q", cfg.SourceAddress)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(*Config) bool
	}{
		{"NETPROBE_NO_DNS", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.NoDNS }},
		{"NETPROBE_ALERT", []string{"1", "true"}, func(c *Config) bool { return c.Alert }},
		{"NETPROBE_SSH_AGENT", []string{"yes"}, func(c *Config) bool { return c.UseSSHAgent }},
		{"NETPROBE_STRICT_HOSTKEY", []string{"1"}, func(c *Config) bool { return c.StrictHostKey }},
		{"NETPROBE_SSH_PASSWORD", []string{"true"}, func(c *Config) bool { return c.SSHPassword }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := New()
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s was not applied", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_FalseBooleans(t *testing.T) {
	for _, v := range []string{"0", "false", "no", "maybe"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("NETPROBE_NO_DNS", v)
			cfg := New()
			LoadFromEnv(cfg)
			if cfg.NoDNS {
				t.Errorf("NETPROBE_NO_DNS=%s should not enable NoDNS", v)
			}
		})
	}
}

func TestLoadFromEnv_Tunnel(t *testing.T) {
	t.Setenv("NETPROBE_TUNNEL", "ops@bastion:2222")
	t.Setenv("NETPROBE_SSH_KEY", "/tmp/id_test")
	t.Setenv("NETPROBE_KNOWN_HOSTS", "/tmp/known_hosts")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.TunnelSpec != "ops@bastion:2222" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.SSHKeyPath != "/tmp/id_test" {
		t.Errorf("SSHKeyPath = %q", cfg.SSHKeyPath)
	}
	if cfg.KnownHostsPath != "/tmp/known_hosts" {
		t.Errorf("KnownHostsPath = %q", cfg.KnownHostsPath)
	}
}

func TestLoadFromEnv_InvalidIgnored(t *testing.T) {
	t.Setenv("NETPROBE_PORT", "not-a-number")
	t.Setenv("NETPROBE_TCP_WORKERS", "-3")
	t.Setenv("NETPROBE_CONNECT_TIMEOUT", "soon")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.Port != 0 {
		t.Errorf("Port = %d, invalid env should be ignored", cfg.Port)
	}
	if cfg.TCPWorkers != DefaultWorkers {
		t.Errorf("TCPWorkers = %d, invalid env should be ignored", cfg.TCPWorkers)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, invalid env should be ignored", cfg.ConnectTimeout)
	}
}

func TestLoadFromEnv_Settings(t *testing.T) {
	t.Setenv("NETPROBE_CONFIG", "/etc/netprobe.yaml")
	t.Setenv("NETPROBE_VERBOSE", "3")
	t.Setenv("NETPROBE_ALERT_PROXY", "socks5://127.0.0.1:1080")
	t.Setenv("NETPROBE_PING_COUNT", "2")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.ConfigPath != "/etc/netprobe.yaml" {
		t.Errorf("ConfigPath = %q", cfg.ConfigPath)
	}
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
	if cfg.AlertProxy != "socks5://127.0.0.1:1080" {
		t.Errorf("AlertProxy = %q", cfg.AlertProxy)
	}
	if cfg.PingCount != 2 {
		t.Errorf("PingCount = %d, want 2", cfg.PingCount)
	}
}
