package util

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// LookupHost turns an operator-supplied host into a literal IP.  A
// literal is returned unchanged; with noDNS any other input is an
// error.  Otherwise the first address the resolver returns is used,
// with no retry and no fallback to the others.
func LookupHost(ctx context.Context, host string, noDNS bool) (string, error) {
	if host == "" {
		return "", fmt.Errorf("empty host")
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	if noDNS {
		return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("DNS lookup for %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("DNS lookup for %q returned no addresses", host)
	}
	return addrs[0], nil
}

// FormatAddr returns "host:port", bracketing IPv6 literals.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

