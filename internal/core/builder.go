package core

import (
	"context"
	"os"
	"os/signal"

	"netprobe/config"
)

// Build constructs the appropriate Mode from the given configuration.
// cfg is expected to have passed Validate.
func Build(cfg *config.Config, env *Env) (Mode, error) {
	switch {
	case cfg.Generate:
		return &GenerateMode{
			Env:      env,
			Target:   cfg.Target,
			Port:     cfg.Port,
			Duration: cfg.Duration,
		}, nil
	case cfg.PingHost != "":
		return &PingMode{Env: env, Host: cfg.PingHost}, nil
	case cfg.TraceHost != "":
		return &TraceMode{Env: env, Host: cfg.TraceHost}, nil
	default:
		return NewShell(env), nil
	}
}

// ── one-shot diagnostics ─────────────────────────────────────────────

// PingMode checks reachability of one host and exits.
type PingMode struct {
	Env  *Env
	Host string
}

// Run pings Host; a failure to ping at all is returned.
func (m *PingMode) Run(ctx context.Context) error {
	ctx, stop := interruptible(ctx)
	defer stop()
	return m.Env.Diagnostics.Ping(ctx, m.Host, m.Env.stdout())
}

// TraceMode traces the path to one host and exits.
type TraceMode struct {
	Env  *Env
	Host string
}

// Run traces the route to Host.
func (m *TraceMode) Run(ctx context.Context) error {
	ctx, stop := interruptible(ctx)
	defer stop()
	return m.Env.Diagnostics.Trace(ctx, m.Host, m.Env.stdout())
}

// interruptible cancels ctx on Ctrl-C.  Diagnostics are not traffic
// runs, so the generator's interrupt handler does not reach them.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}
