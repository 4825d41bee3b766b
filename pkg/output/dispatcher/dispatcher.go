// Package dispatcher routes scan events to registered writers and hooks.
// Writers persist events (JSONL files, consoles); hooks are real-time
// integrations (metrics, tracing, WebSocket observers).
//
// The dispatcher is the one path every scan event flows through, so
// producers never know who is listening.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/waftester/bountyscout/pkg/output/events"
)

// Writer is the interface for all output writers.
type Writer interface {
	// Write writes an event to the output.
	Write(event events.Event) error

	// Flush ensures all buffered events are written.
	Flush() error

	// Close closes the writer and releases any resources.
	Close() error

	// SupportsEvent returns true if the writer handles this event type.
	SupportsEvent(eventType events.EventType) bool
}

// Hook is the interface for event hooks.
type Hook interface {
	// OnEvent is called for each matching event.
	OnEvent(ctx context.Context, event events.Event) error

	// EventTypes returns the event types this hook handles.
	// Return nil or empty slice to receive all events.
	EventTypes() []events.EventType
}

// Dispatcher routes events to writers and hooks.
// It is safe for concurrent use.
type Dispatcher struct {
	writers []Writer
	hooks   []Hook
	mu      sync.RWMutex
	hookWg  sync.WaitGroup
	closed  atomic.Bool

	async  bool
	logger *slog.Logger
}

// Config configures the dispatcher behavior.
type Config struct {
	// Async calls hooks in goroutines. Ordering across events is then
	// no longer guaranteed; progress observers need it off.
	Async bool

	// Logger receives writer and hook failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a new event dispatcher with the given configuration.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		writers: make([]Writer, 0),
		hooks:   make([]Hook, 0),
		async:   cfg.Async,
		logger:  logger,
	}
}

// RegisterWriter adds a writer to the dispatcher.
func (d *Dispatcher) RegisterWriter(w Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writers = append(d.writers, w)
}

// RegisterHook adds a hook to the dispatcher.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Dispatch sends an event to all registered writers and hooks.
// Failures are logged and never returned, so one broken consumer cannot
// starve the others. Dispatch after Close is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed.Load() {
		return nil
	}

	for _, w := range d.writers {
		if !w.SupportsEvent(event.EventType()) {
			continue
		}
		if err := w.Write(event); err != nil {
			d.logger.Warn("output writer failed",
				slog.String("event", string(event.EventType())),
				slog.String("error", err.Error()))
		}
	}

	for _, h := range d.hooks {
		if !hookSupportsEvent(h, event.EventType()) {
			continue
		}
		if d.async {
			d.hookWg.Add(1)
			go func(hook Hook) {
				defer d.hookWg.Done()
				d.callHook(ctx, hook, event)
			}(h)
			continue
		}
		d.callHook(ctx, h, event)
	}

	return nil
}

func (d *Dispatcher) callHook(ctx context.Context, h Hook, event events.Event) {
	if err := h.OnEvent(ctx, event); err != nil {
		d.logger.Warn("output hook failed",
			slog.String("event", string(event.EventType())),
			slog.String("error", err.Error()))
	}
}

// hookSupportsEvent checks if a hook handles the given event type.
func hookSupportsEvent(h Hook, eventType events.EventType) bool {
	types := h.EventTypes()
	if len(types) == 0 {
		return true
	}
	for _, et := range types {
		if et == eventType {
			return true
		}
	}
	return false
}

// Flush flushes all registered writers.
func (d *Dispatcher) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, w := range d.writers {
		_ = w.Flush()
	}
	return nil
}

// Close waits for in-flight hooks, then flushes and closes all writers.
// Hooks are not closed; their owners do that.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	// The write lock waits out any Dispatch still holding the read lock,
	// so no hookWg.Add can race with Wait.
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hookWg.Wait()

	for _, w := range d.writers {
		_ = w.Flush()
		_ = w.Close()
	}
	return nil
}
