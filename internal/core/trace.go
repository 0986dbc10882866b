package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

// traceCommand returns the platform's path-trace program and its
// arguments for host.
func traceCommand(goos, host string) (string, []string) {
	if goos == "windows" {
		return "tracert", []string{host}
	}
	return "traceroute", []string{host}
}

// Trace runs the system traceroute (tracert on Windows) against host,
// streaming its output to out.  A missing tool is reported with a hint
// rather than the raw exec error.
func (d *SystemDiagnostics) Trace(ctx context.Context, host string, out io.Writer) error {
	if host == "" || strings.HasPrefix(host, "-") {
		return fmt.Errorf("traceroute: invalid host %q", host)
	}

	name, args := traceCommand(runtime.GOOS, host)
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH; install it to use path tracing", name)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	if d.Logger != nil {
		d.Logger.Debug("exec: %s", cmd.String())
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d", name, exitErr.ExitCode())
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
