package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

const stackTraceBufMax = 1 << 24

// setupSignalHandlers cancels the run on the first SIGINT or SIGTERM, and
// dumps the stacks of all goroutines on SIGUSR1. The returned function
// uninstalls the handlers.
func setupSignalHandlers(cancel context.CancelFunc) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	dumpChan := make(chan os.Signal, 1)
	signal.Notify(dumpChan, syscall.SIGUSR1)

	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			slog.Warn("Interrupt received, finishing the current step:", "signal", sig.String())
			cancel()
		case <-done:
		}
	}()

	go func() {
		for {
			select {
			case <-dumpChan:
				buf := make([]byte, stackTraceBufMax)
				stacklen := runtime.Stack(buf, true)
				os.Stderr.Write(buf[:stacklen]) //nolint:errcheck
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		signal.Stop(dumpChan)
		close(done)
	}
}
