package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/waftester/bountyscout/pkg/defaults"
)

// SignalContext returns a context cancelled on SIGINT/SIGTERM. A running
// scan stops after its current target. If a second signal arrives within
// gracePeriod the process exits with defaults.ExitInterrupted.
//
//	ctx, cancel := cli.SignalContext(duration.SignalGrace, logger)
//	defer cancel()
func SignalContext(gracePeriod time.Duration, logger *slog.Logger) (context.Context, context.CancelFunc) {
	return signalContext(gracePeriod, logger, nil, nil)
}

// signalContext lets tests inject the signal channel and exit function.
func signalContext(
	gracePeriod time.Duration,
	logger *slog.Logger,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	if exitFn == nil {
		exitFn = os.Exit
	}

	ctx, cancel := context.WithCancel(context.Background())

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}

	go func() {
		defer func() {
			if ownChannel {
				signal.Stop(sigChan)
			}
		}()

		select {
		case sig := <-sigChan:
			logger.Warn("interrupt received, shutting down",
				slog.String("signal", sig.String()),
				slog.Duration("grace", gracePeriod))
			cancel()
		case <-ctx.Done():
			return
		}

		timer := time.NewTimer(gracePeriod)
		defer timer.Stop()
		select {
		case <-sigChan:
			logger.Error("second interrupt, exiting immediately")
			exitFn(defaults.ExitInterrupted)
		case <-timer.C:
		}
	}()

	return ctx, cancel
}
