package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Returns a context that will live until Ctrl+C is pressed or the process is
// asked to terminate.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Warn("received signal, finishing up", "signal", sig.String())
		cancel()
	}()

	return ctx
}

var (
	osExit = os.Exit
	exit   = osExit
)

// Fatal logs the error, runs the cleanups in order and exits with status 1.
// Deferred functions do not run on exit, anything that must be flushed (log
// files, telemetry exporters) goes in cleanups.
func Fatal(message string, err error, cleanups ...func()) {
	slog.Error(message, "err", err.Error())
	for _, cleanup := range cleanups {
		cleanup()
	}
	exit(1)
}
