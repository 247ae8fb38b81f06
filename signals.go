package main

import (
	"os"
	"os/signal"
	"syscall"

	"horizon-boot/logging"
)

// installSignalHandlers arranges graceful shutdown for termination signals
// arriving before dispatch. Shutdown by signal is expected behavior, not a
// failure, so the process exits 0. After dispatch the handler no longer
// exists: the exec'd process receives signals directly.
func installSignalHandlers(log *logging.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-ch
		log.Info("shutdown", "received %s before dispatch, cleaning up", sig)
		log.Cleanup("entrypoint")
		os.Exit(0)
	}()
}
