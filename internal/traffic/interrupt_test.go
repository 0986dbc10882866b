//go:build unix

package traffic

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestHandleInterrupts(t *testing.T) {
	gen := fakeGenerator(&pipeDialer{}, &loopbackPacketDialer{})
	stop := HandleInterrupts(gen, quietLogger(), syscall.SIGUSR1)
	defer stop()

	// Idle: the handler swallows the signal and stays installed.
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	done := make(chan *Report, 1)
	go func() {
		r, err := gen.Run(context.Background(), RunParameters{
			Target:   mustResolve(t, "127.0.0.1", 9),
			Duration: 30 * time.Second,
		})
		if err != nil {
			t.Error(err)
		}
		done <- r
	}()
	waitRunning(t, gen)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-done:
		if r == nil || !r.Interrupted {
			t.Error("run should end interrupted")
		}
	case <-time.After(3 * time.Second):
		gen.Interrupt()
		t.Fatal("signal did not interrupt the run")
	}

	stop()
	stop() // idempotent
}
