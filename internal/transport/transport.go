// Package transport provides abstractions for opening the sockets the
// traffic workers send through.  Transports handle the "how" (plain
// TCP, UDP packet sockets, or TCP routed through an SSH gateway)
// independent of what a worker does with the socket.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound stream connections.  Implementations include
// a plain TCP dialer and an SSH-tunnelled dialer.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// PacketDialer opens unconnected packet sockets.  network is "udp4"
// or "udp6" and matches the family of the destination.
type PacketDialer interface {
	ListenPacket(ctx context.Context, network string) (net.PacketConn, error)
}
