package core

import (
	"context"
	"io"
	"os"

	"netprobe/config"
	"netprobe/internal/alert"
	"netprobe/internal/retry"
	"netprobe/internal/traffic"
	"netprobe/internal/transport"
	"netprobe/tunnel"
	"netprobe/util"
)

// Gateway is an upstream session the TCP pool depends on, currently
// only the SSH tunnel.  It is connected before a run starts so that an
// unreachable gateway fails the run once instead of every attempt.
type Gateway interface {
	Connect(ctx context.Context) error
	Close() error
}

// NotifierFunc builds an alert channel from the current settings.  It
// returns ErrAlertNotConfigured when credentials are missing.
type NotifierFunc func(settings config.Settings) (alert.Notifier, error)

// Env carries the process-wide collaborators every mode shares.
type Env struct {
	Generator   *traffic.Generator
	Settings    *config.Store
	Diagnostics Diagnostics
	Notifier    NotifierFunc
	Gateway     Gateway // nil unless tunnelled
	Logger      *util.Logger

	NoDNS bool
	Alert bool // send a summary after each run

	// In/Out default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	In  io.Reader
	Out io.Writer
}

func (e *Env) stdin() io.Reader {
	if e.In != nil {
		return e.In
	}
	return os.Stdin
}

func (e *Env) stdout() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return os.Stdout
}

// Close releases the gateway session, if any.
func (e *Env) Close() error {
	if e.Gateway != nil {
		return e.Gateway.Close()
	}
	return nil
}

// NewEnv wires the real collaborators for cfg: transports, generator,
// settings store, diagnostics and the Telegram notifier.  The settings
// file is loaded here; a malformed file is an error.
func NewEnv(cfg *config.Config, logger *util.Logger) (*Env, error) {
	store := config.NewStore(cfg.ConfigPath)
	if _, err := store.Load(); err != nil {
		return nil, err
	}

	opts := traffic.Options{
		TCPWorkers:     cfg.TCPWorkers,
		UDPWorkers:     cfg.UDPWorkers,
		ConnectTimeout: cfg.ConnectTimeout,
		PayloadSize:    cfg.PayloadSize,
		PacketDialer:   &transport.UDPDialer{LocalAddress: cfg.SourceAddress},
		Logger:         logger,
	}

	env := &Env{
		Settings: store,
		Diagnostics: &SystemDiagnostics{
			Count:      cfg.PingCount,
			Timeout:    config.DefaultPingTimeout,
			Privileged: cfg.PingPrivileged,
			Logger:     logger,
		},
		Notifier: telegramNotifier(cfg.AlertProxy, logger),
		Logger:   logger,
		NoDNS:    cfg.NoDNS,
		Alert:    cfg.Alert,
	}

	if cfg.TunnelEnabled {
		ssh := transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   config.DefaultSSHTimeout,
			KeepAlive:     config.DefaultSSHKeepAlive,
		}, logger)
		opts.Dialer = ssh
		env.Gateway = ssh

		// Datagrams cannot ride an SSH channel.
		if opts.UDPWorkers > 0 {
			logger.Info("UDP pool disabled: traffic is tunnelled through %s", cfg.TunnelHost)
			opts.UDPWorkers = 0
		}
	} else {
		opts.Dialer = &transport.TCPDialer{LocalAddress: cfg.SourceAddress}
	}

	env.Generator = traffic.NewGenerator(opts)
	return env, nil
}

// telegramNotifier returns the production NotifierFunc.  The breaker
// is shared across calls so repeated failures in one session back off.
func telegramNotifier(proxyURL string, logger *util.Logger) NotifierFunc {
	breaker := retry.NewBreaker(config.DefaultAlertAttempts, 0)
	return func(s config.Settings) (alert.Notifier, error) {
		backoff := retry.DefaultBackoff()
		backoff.Attempts = config.DefaultAlertAttempts
		return alert.NewTelegram(alert.Options{
			Token:   s.TelegramToken,
			ChatID:  s.TelegramChatID,
			Timeout: config.DefaultAlertTimeout,
			Proxy:   proxyURL,
			Backoff: backoff,
			Breaker: breaker,
			Logger:  logger,
		})
	}
}
