// netprobe - interactive network diagnostics and load generation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"netprobe/cmd"
)

func main() {
	// SIGINT is not listed: it stops a traffic run, not the process.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "netprobe: %v\n", err)
		os.Exit(1)
	}
}
