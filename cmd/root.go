// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"netprobe/config"
	"netprobe/internal/core"
	"netprobe/internal/traffic"
	"netprobe/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X netprobe/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected mode.  With no mode flag
// the interactive shell starts.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.New()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("netprobe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Generate, "generate", "g", false, "Generate traffic and exit")
	fs.StringVar(&cfg.PingHost, "ping", "", "Ping a host and exit")
	fs.StringVar(&cfg.TraceHost, "trace", "", "Trace the route to a host and exit")

	// ── run parameters ───────────────────────────────────────────
	fs.StringVarP(&cfg.Target, "target", "t", cfg.Target, "Traffic target host or IP")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Traffic target port (default from settings, else 80)")
	fs.IntVarP(&cfg.Duration, "duration", "d", cfg.Duration, "Run length in seconds (default from settings, else 10)")

	// ── traffic engine ───────────────────────────────────────────
	fs.IntVar(&cfg.TCPWorkers, "tcp-workers", cfg.TCPWorkers, "Concurrent TCP connectors")
	fs.IntVar(&cfg.UDPWorkers, "udp-workers", cfg.UDPWorkers, "Concurrent UDP senders")
	timeoutMs := int(cfg.ConnectTimeout / time.Millisecond)
	fs.IntVar(&timeoutMs, "connect-timeout", timeoutMs, "Per-attempt TCP connect timeout in milliseconds")
	fs.IntVar(&cfg.PayloadSize, "payload-size", cfg.PayloadSize, "UDP datagram size in bytes")
	fs.StringVarP(&cfg.SourceAddress, "source", "s", cfg.SourceAddress, "Local source address")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Route TCP traffic via SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── settings, alerting and diagnostics ───────────────────────
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Settings file")
	fs.BoolVar(&cfg.Alert, "alert", cfg.Alert, "Send a Telegram summary after each run")
	fs.StringVar(&cfg.AlertProxy, "alert-proxy", cfg.AlertProxy, "SOCKS5 proxy for Telegram (socks5://host:port)")
	fs.IntVar(&cfg.PingCount, "count", cfg.PingCount, "Echo requests per ping")
	fs.BoolVar(&cfg.PingPrivileged, "privileged", cfg.PingPrivileged, "Use raw ICMP sockets for ping")

	// ── output ───────────────────────────────────────────────────
	// CountVarP resets its target, so keep the env/default level and
	// add -v occurrences on top after parsing.
	verbosity := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	var quiet, dryRun, showVersion, showHelp bool
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate options and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Verbose += verbosity
	if quiet {
		cfg.Verbose = 0
	}

	if showHelp {
		printUsage(stdout, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "netprobe %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}
	cfg.ConnectTimeout = time.Duration(timeoutMs) * time.Millisecond

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(stdout, "configuration OK: %d TCP + %d UDP workers, settings %s\n",
			cfg.TCPWorkers, cfg.UDPWorkers, cfg.ConfigPath)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	env, err := core.NewEnv(cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close() //nolint:errcheck
	env.Out = stdout

	stop := traffic.HandleInterrupts(env.Generator, logger, os.Interrupt)
	defer stop()

	mode, err := core.Build(cfg, env)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `netprobe - network diagnostics and load generation v%s

Usage:
  netprobe                                    Interactive shell
  netprobe -g -t <host> [-p port] [-d secs]   Generate traffic and exit
  netprobe --ping <host>                      Ping and exit
  netprobe --trace <host>                     Traceroute and exit

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Environment:
  NETPROBE_TARGET, NETPROBE_PORT, NETPROBE_DURATION, NETPROBE_CONFIG,
  NETPROBE_TUNNEL, NETPROBE_ALERT and friends seed the flags above.

The target is resolved locally even with --tunnel; give the address
the gateway should connect to.

Examples:
  netprobe -g -t 10.0.0.5 -p 443 -d 30        30 s burst at 10.0.0.5:443
  netprobe -g -T admin@bastion -t 10.20.0.7 -p 5432
                                              TCP burst through a gateway
  netprobe -g --alert                         Default target, Telegram summary
  netprobe --ping example.com --count 10      Ten echo requests
`)
}
