package transport

import (
	"context"
	"net"
)

// UDPDialer binds ephemeral UDP sockets for fire-and-forget sends.
type UDPDialer struct {
	LocalAddress string // optional source IP (empty = wildcard)
}

// ListenPacket binds a fresh socket on an ephemeral port.
func (d *UDPDialer) ListenPacket(ctx context.Context, network string) (net.PacketConn, error) {
	var lc net.ListenConfig
	return lc.ListenPacket(ctx, network, net.JoinHostPort(d.LocalAddress, "0"))
}
