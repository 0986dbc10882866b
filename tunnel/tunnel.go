// Package tunnel provides an SSH gateway through which the TCP
// connector pool can reach targets that are only routable from a
// jump host.  It is backed by golang.org/x/crypto/ssh.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which TCP connections
// can be forwarded.
type Tunnel interface {
	// Connect establishes the session to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the gateway.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the session and frees resources.
	Close() error

	// IsAlive reports whether the underlying session is still up.
	IsAlive() bool
}
