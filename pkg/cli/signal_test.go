package cli

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/defaults"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireDone(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, msg)
	}
}

func TestSignalContext_InterruptCancels(t *testing.T) {
	signals := make(chan os.Signal, 1)
	ctx, cancel := signalContext(time.Second, quietLogger(), signals, func(int) {})
	defer cancel()

	assert.NoError(t, ctx.Err(), "live until a signal arrives")

	signals <- os.Interrupt
	requireDone(t, ctx.Done(), "interrupt did not cancel the scan context")
}

func TestSignalContext_CancelStopsWatcher(t *testing.T) {
	signals := make(chan os.Signal, 1)
	var exited atomic.Bool
	ctx, cancel := signalContext(time.Second, quietLogger(), signals, func(int) { exited.Store(true) })

	cancel()
	requireDone(t, ctx.Done(), "cancel did not end the context")

	signals <- os.Interrupt
	time.Sleep(50 * time.Millisecond)
	assert.False(t, exited.Load())
}

func TestSignalContext_SecondInterruptExits(t *testing.T) {
	signals := make(chan os.Signal, 2)
	codes := make(chan int, 1)
	ctx, cancel := signalContext(time.Second, quietLogger(), signals, func(code int) { codes <- code })
	defer cancel()

	signals <- os.Interrupt
	requireDone(t, ctx.Done(), "first interrupt did not cancel")
	signals <- os.Interrupt

	select {
	case code := <-codes:
		assert.Equal(t, defaults.ExitInterrupted, code)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "second interrupt did not exit")
	}
}

func TestSignalContext_GraceExpires(t *testing.T) {
	signals := make(chan os.Signal, 2)
	var exited atomic.Bool
	ctx, cancel := signalContext(20*time.Millisecond, quietLogger(), signals, func(int) { exited.Store(true) })
	defer cancel()

	signals <- os.Interrupt
	requireDone(t, ctx.Done(), "interrupt did not cancel")

	time.Sleep(100 * time.Millisecond)
	signals <- os.Interrupt
	time.Sleep(50 * time.Millisecond)
	assert.False(t, exited.Load(), "a signal after the grace window is ignored")
}
