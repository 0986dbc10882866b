// Package core is the orchestration layer.  It composes the traffic
// engine, diagnostics, settings and alerting into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  traffic  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between the
// one-shot modes and the interactive shell.
package core

import "context"

// Mode represents a complete operational mode of netprobe (generate,
// ping, trace, or the interactive shell).  Each mode owns its full
// lifecycle and returns when its work is done or ctx is cancelled.
type Mode interface {
	Run(ctx context.Context) error
}
