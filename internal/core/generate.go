package core

import (
	"context"
	"fmt"
	"time"

	"netprobe/config"
	ncerr "netprobe/internal/errors"
	"netprobe/internal/traffic"
	"netprobe/util"
)

// GenerateTraffic looks up host, resolves it with port, and runs one
// traffic burst of the given length.  Every failure is printed for the
// operator and nil is returned; it never ends the process.
//
// The optional alert is sent after the run and its failure is printed
// too.
func (e *Env) GenerateTraffic(ctx context.Context, host string, port int, seconds uint64) *traffic.Report {
	out := e.stdout()

	if seconds == 0 {
		fmt.Fprintln(out, "Invalid duration: must be at least one second")
		return nil
	}
	duration, err := traffic.Seconds(seconds)
	if err != nil {
		fmt.Fprintf(out, "Invalid duration: %v\n", err)
		return nil
	}

	ip, err := util.LookupHost(ctx, host, e.NoDNS)
	if err != nil {
		fmt.Fprintf(out, "Invalid target address: %v\n", err)
		return nil
	}
	target, err := traffic.Resolve(ip, port)
	if err != nil {
		fmt.Fprintf(out, "Invalid target address: %v\n", err)
		return nil
	}

	if e.Gateway != nil {
		gctx, stop := interruptible(ctx)
		err := e.Gateway.Connect(gctx)
		stop()
		if err != nil {
			fmt.Fprintf(out, "Tunnel unavailable: %v\n", err)
			return nil
		}
	}

	if ip != host {
		fmt.Fprintf(out, "Generating traffic to %s (%s) for %d seconds...\n", host, target, seconds)
	} else {
		fmt.Fprintf(out, "Generating traffic to %s for %d seconds...\n", target, seconds)
	}

	report, err := e.Generator.Run(ctx, traffic.RunParameters{
		Target:   target,
		Duration: duration,
	})
	if err != nil {
		fmt.Fprintf(out, "Traffic generation failed: %v\n", err)
		return nil
	}

	elapsed := report.Elapsed.Truncate(time.Millisecond)
	if report.Interrupted {
		fmt.Fprintf(out, "Traffic generation interrupted after %v.\n", elapsed)
	} else {
		fmt.Fprintf(out, "Traffic generation completed in %v.\n", elapsed)
	}
	fmt.Fprintf(out, "  %s\n", report.Stats.Summary())

	if e.Alert {
		e.sendReport(ctx, report)
	}
	return report
}

// sendReport delivers a one-paragraph run summary through the
// configured notifier.
func (e *Env) sendReport(ctx context.Context, r *traffic.Report) {
	out := e.stdout()

	n, err := e.Notifier(e.Settings.Settings())
	if err != nil {
		if ncerr.Is(err, ncerr.ErrAlertNotConfigured) {
			fmt.Fprintln(out, "Alert skipped: Telegram token or chat ID not configured")
			return
		}
		fmt.Fprintf(out, "Alert failed: %v\n", err)
		return
	}

	state := "completed"
	if r.Interrupted {
		state = "interrupted"
	}
	text := fmt.Sprintf("netprobe run %s %s\ntarget: %s\nelapsed: %v of %v\n%s",
		r.RunID[:8], state, r.Target, r.Elapsed.Truncate(time.Millisecond), r.Duration, r.Stats.Summary())

	if err := n.Send(ctx, text); err != nil {
		fmt.Fprintf(out, "Alert failed: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Alert sent.")
}

// ── Generate mode ────────────────────────────────────────────────────

// GenerateMode runs one burst from command-line parameters, taking
// anything not given from the settings file.
type GenerateMode struct {
	Env      *Env
	Target   string
	Port     int // 0 = from settings
	Duration int // seconds, 0 = from settings
}

// Run resolves the effective parameters and generates traffic.  A
// missing target is the only error; everything after that is reported
// by GenerateTraffic.
func (m *GenerateMode) Run(ctx context.Context) error {
	target, port, duration := effectiveDefaults(m.Env.Settings.Settings())
	if m.Target != "" {
		target = m.Target
	}
	if m.Port != 0 {
		port = m.Port
	}
	if m.Duration != 0 {
		duration = m.Duration
	}
	if target == "" {
		return &ncerr.ConfigError{
			Field:   "target",
			Message: "no target specified and no default target configured",
			Hint:    "pass -t <host> or save one with the shell command config_default_target",
		}
	}

	m.Env.GenerateTraffic(ctx, target, port, uint64(duration))
	return nil
}

// effectiveDefaults returns the run parameters used when the operator
// gives none.
func effectiveDefaults(s config.Settings) (target string, port, seconds int) {
	return s.DefaultTarget, s.Port(), s.Duration()
}
