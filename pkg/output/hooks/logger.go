// Package hooks provides dispatcher hooks that forward scan events to
// metrics, tracing, logs, webhooks and the terminal.
package hooks

import (
	"context"
	"log/slog"

	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LogHook)(nil)

// LogHook writes scan milestones to a structured logger. Progress
// snapshots are logged at debug level only.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook returns a hook logging to logger (slog.Default() when nil).
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{logger: orDefault(logger)}
}

// OnEvent logs the event.
func (h *LogHook) OnEvent(ctx context.Context, event events.Event) error {
	scan := slog.String("scan_id", event.ScanID())
	switch e := event.(type) {
	case *events.StartEvent:
		h.logger.InfoContext(ctx, "scan started", scan,
			slog.Int("programs", e.Programs),
			slog.Int("scope_limit", e.Config.ScopeLimit))
	case *events.ProgressEvent:
		h.logger.DebugContext(ctx, "progress", scan,
			slog.Int("current", e.Progress.Current),
			slog.Int("total", e.Progress.Total),
			slog.String("message", e.Progress.Message),
			slog.String("program", e.Progress.CurrentProgram))
	case *events.TargetEvent:
		attrs := []any{scan,
			slog.String("program", e.Program),
			slog.String("url", e.URL),
			slog.Bool("reachable", e.Reachable()),
		}
		if e.Analysis != nil {
			attrs = append(attrs,
				slog.Int("reflected_stored_score", e.Analysis.ReflectedStoredScore),
				slog.Int("dom_score", e.Analysis.DOMScore))
		}
		h.logger.InfoContext(ctx, "target evaluated", attrs...)
	case *events.ErrorEvent:
		level := slog.LevelWarn
		if e.Fatal {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "scan step failed", scan,
			slog.String("stage", string(e.Stage)),
			slog.String("program", e.Program),
			slog.String("target", e.Target),
			slog.String("error", e.Message))
	case *events.CompleteEvent:
		h.logger.InfoContext(ctx, "scan finished", scan,
			slog.Bool("success", e.Success),
			slog.Int("programs", e.Programs),
			slog.Int("targets", e.Targets),
			slog.Int("analyzed", e.Analyzed),
			slog.Int("good_targets", e.GoodTargets),
			slog.Float64("duration_sec", e.DurationSec))
	}
	return nil
}

// EventTypes returns nil to receive every event.
func (h *LogHook) EventTypes() []events.EventType { return nil }
