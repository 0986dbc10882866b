package traffic

import (
	"os"
	"os/signal"
	"sync"

	"netprobe/util"
)

// HandleInterrupts routes the given OS signals to gen.Interrupt until
// the returned stop function is called.  It is meant to be installed
// once per process: a signal arriving while no run is in progress is
// ignored, so the handler never needs re-registering between runs.
func HandleInterrupts(gen *Generator, logger *util.Logger, sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case s := <-ch:
				if gen.Interrupt() {
					logger.Warn("%v received, stopping traffic generation", s)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
