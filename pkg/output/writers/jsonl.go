// Package writers provides dispatcher writers that persist scan events.
package writers

import (
	"io"
	"sync"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter writes events as newline-delimited JSON. Each line parses
// on its own, so the file can be tailed with jq while a scan runs.
type JSONLWriter struct {
	w    io.Writer
	mu   sync.Mutex
	opts JSONLOptions
}

// JSONLOptions configures the JSONL writer.
type JSONLOptions struct {
	// OmitProgress drops progress snapshots, which dominate the stream.
	OmitProgress bool

	// OnlyGood keeps target events only when at least one verdict is good.
	OnlyGood bool
}

// NewJSONLWriter creates a JSONL writer on w. It is safe for concurrent use.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	return &JSONLWriter{w: w, opts: opts}
}

// Write writes an event as a single JSON line. Filtered events are
// skipped without error.
func (jw *JSONLWriter) Write(event events.Event) error {
	if jw.opts.OnlyGood {
		if te, ok := event.(*events.TargetEvent); ok {
			if te.Analysis == nil || !(te.Analysis.GoodReflectedStored || te.Analysis.GoodDOM) {
				return nil
			}
		}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jsonutil.Write(jw.w, event)
}

// Flush syncs the underlying writer when it is a file.
func (jw *JSONLWriter) Flush() error {
	if f, ok := jw.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

// Close closes the underlying writer when it is an io.Closer.
func (jw *JSONLWriter) Close() error {
	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent reports whether the event type is written.
func (jw *JSONLWriter) SupportsEvent(t events.EventType) bool {
	return !(jw.opts.OmitProgress && t == events.EventTypeProgress)
}
