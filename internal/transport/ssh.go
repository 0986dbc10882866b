package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	ncerr "netprobe/internal/errors"
	"netprobe/internal/retry"
	"netprobe/tunnel"
	"netprobe/util"
)

// connectAttempts bounds how often a timed-out gateway handshake is
// retried.  Auth and host-key failures are never retried.
const connectAttempts = 3

// SSHDialer routes TCP connections through an SSH gateway.  The
// gateway session is shared by every caller and is only ever
// established by Connect, before a run starts.
type SSHDialer struct {
	tunnel    *tunnel.SSHTunnel
	config    *tunnel.SSHConfig
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH gateway.  Nothing is dialled until Connect.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return &SSHDialer{
		tunnel: tunnel.NewSSHTunnel(cfg, logger),
		config: cfg,
		logger: logger,
	}
}

// Connect establishes the gateway session unless a live one exists.  A
// session lost since the last call is replaced.
func (d *SSHDialer) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() {
		return nil
	}
	if d.connected {
		d.logger.Warn("SSH gateway session lost, reconnecting")
		d.tunnel.Close() //nolint:errcheck
		d.connected = false
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s:%d",
		d.config.User, d.config.Host, d.config.Port)

	backoff := retry.Backoff{
		Initial:    time.Second,
		Max:        5 * time.Second,
		Multiplier: 2,
		Attempts:   connectAttempts,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			d.logger.Warn("SSH gateway attempt %d failed: %v (retrying in %v)", attempt, err, wait)
		},
	}
	err := backoff.Do(ctx, func(ctx context.Context, _ int) error {
		err := d.tunnel.Connect(ctx)
		if err != nil && !ncerr.IsRetryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial opens a direct-tcpip channel to address through the gateway.
// It never reconnects: with no live session it fails at once with
// ErrNotConnected, so a gateway lost mid-run cannot stall the pool.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the gateway session.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}
