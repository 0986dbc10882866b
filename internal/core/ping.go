package core

import (
	"context"
	"fmt"
	"io"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"netprobe/util"
)

// Diagnostics runs the operator's reachability and path checks,
// writing human-readable output to out.
type Diagnostics interface {
	Ping(ctx context.Context, host string, out io.Writer) error
	Trace(ctx context.Context, host string, out io.Writer) error
}

// SystemDiagnostics pings with an in-process ICMP client and traces
// with the platform's traceroute tool.
type SystemDiagnostics struct {
	Count      int
	Timeout    time.Duration // bounds the whole ping
	Privileged bool          // raw ICMP sockets; needs root or CAP_NET_RAW
	Logger     *util.Logger
}

// Ping sends Count echo requests to host and prints each reply and a
// summary.  Unanswered requests are not an error; failing to resolve
// host or to open the ICMP socket is.
func (d *SystemDiagnostics) Ping(ctx context.Context, host string, out io.Writer) error {
	p, err := probing.NewPinger(host)
	if err != nil {
		return fmt.Errorf("ping %s: %w", host, err)
	}
	p.Count = d.Count
	if p.Count <= 0 {
		p.Count = 4
	}
	if d.Timeout > 0 {
		p.Timeout = d.Timeout
	}
	p.SetPrivileged(d.Privileged)

	p.OnRecv = func(pkt *probing.Packet) {
		fmt.Fprintf(out, "%d bytes from %s: icmp_seq=%d ttl=%d time=%v\n",
			pkt.Nbytes, pkt.IPAddr, pkt.Seq, pkt.TTL, pkt.Rtt.Round(time.Microsecond))
	}
	p.OnDuplicateRecv = func(pkt *probing.Packet) {
		fmt.Fprintf(out, "%d bytes from %s: icmp_seq=%d (DUP!)\n", pkt.Nbytes, pkt.IPAddr, pkt.Seq)
	}

	fmt.Fprintf(out, "PING %s (%s):\n", p.Addr(), p.IPAddr())
	if d.Logger != nil {
		d.Logger.Debug("ping %s: count=%d timeout=%v privileged=%v", host, p.Count, p.Timeout, d.Privileged)
	}

	if err := p.RunWithContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", host, err)
	}

	writePingSummary(out, p.Statistics())
	return nil
}

func writePingSummary(out io.Writer, st *probing.Statistics) {
	fmt.Fprintf(out, "\n--- %s ping statistics ---\n", st.Addr)
	fmt.Fprintf(out, "%d packets transmitted, %d packets received, %d duplicates, %.1f%% packet loss\n",
		st.PacketsSent, st.PacketsRecv, st.PacketsRecvDuplicates, st.PacketLoss)
	if st.PacketsRecv > 0 {
		fmt.Fprintf(out, "round-trip min/avg/max/stddev = %v/%v/%v/%v\n",
			st.MinRtt.Round(time.Microsecond), st.AvgRtt.Round(time.Microsecond),
			st.MaxRtt.Round(time.Microsecond), st.StdDevRtt.Round(time.Microsecond))
	}
}
