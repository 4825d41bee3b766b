package hooks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
	"github.com/waftester/bountyscout/pkg/strutil"
	"github.com/waftester/bountyscout/pkg/ui"
)

var _ dispatcher.Hook = (*ConsoleHook)(nil)

// ConsoleHook prints a nuclei-style line per evaluated target and a
// header whenever the scan moves to a new program.
type ConsoleHook struct {
	mu          sync.Mutex
	w           io.Writer
	onlyGood    bool
	lastProgram string
}

// NewConsoleHook writes to w. With onlyGood, targets without a good
// verdict are not printed.
func NewConsoleHook(w io.Writer, onlyGood bool) *ConsoleHook {
	return &ConsoleHook{w: w, onlyGood: onlyGood}
}

// OnEvent renders the event.
func (h *ConsoleHook) OnEvent(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := event.(type) {
	case *events.StartEvent:
		fmt.Fprintln(h.w, ui.SectionStyle.Render(fmt.Sprintf("Scanning %d programs", e.Programs)))
	case *events.ProgressEvent:
		p := e.Progress
		if p.CurrentProgram != "" && p.CurrentProgram != h.lastProgram {
			h.lastProgram = p.CurrentProgram
			fmt.Fprintf(h.w, "%s %s\n",
				ui.BracketStyle.Render(fmt.Sprintf("[%d/%d]", p.Current+1, p.Total)),
				ui.StatValueStyle.Render(p.CurrentProgram))
		}
	case *events.TargetEvent:
		h.printTarget(e)
	case *events.ErrorEvent:
		if e.Fatal {
			fmt.Fprintf(h.w, "%s %s\n", ui.FailStyle.Render(ui.Icon("✗", "[x]")), e.Message)
		}
	case *events.CompleteEvent:
		h.printSummary(e)
	}
	return nil
}

func (h *ConsoleHook) printTarget(e *events.TargetEvent) {
	good := e.Analysis != nil && (e.Analysis.GoodReflectedStored || e.Analysis.GoodDOM)
	if h.onlyGood && !good {
		return
	}

	status := ui.StatusCodeStyle(0).Render("---")
	if e.Probe.StatusCode != nil {
		status = ui.StatusCodeStyle(*e.Probe.StatusCode).Render(fmt.Sprintf("%d", *e.Probe.StatusCode))
	}
	line := fmt.Sprintf("  %s %s", status, ui.URLStyle.Render(strutil.Ellipsis(e.URL, 80)))
	if e.Probe.HasAuthIndicators {
		line += " " + ui.BracketStyle.Render("[auth]")
	}
	if a := e.Analysis; a != nil {
		line += fmt.Sprintf(" %s %s",
			ui.ScoreStyle(a.ReflectedStoredScore, a.GoodReflectedStored).Render(fmt.Sprintf("[rs:%d]", a.ReflectedStoredScore)),
			ui.ScoreStyle(a.DOMScore, a.GoodDOM).Render(fmt.Sprintf("[dom:%d]", a.DOMScore)))
		if len(a.Frameworks) > 0 {
			line += " " + ui.BracketStyle.Render(fmt.Sprintf("%v", a.Frameworks))
		}
	}
	fmt.Fprintln(h.w, line)
}

func (h *ConsoleHook) printSummary(e *events.CompleteEvent) {
	if !e.Success {
		fmt.Fprintf(h.w, "%s scan failed: %s\n", ui.FailStyle.Render(ui.Icon("✗", "[x]")), e.Message)
		return
	}
	fmt.Fprintln(h.w, ui.SectionStyle.Render("Summary"))
	rows := []struct {
		label string
		value int
	}{
		{"Programs", e.Programs},
		{"Targets", e.Targets},
		{"Reachable", e.Reachable},
		{"Analyzed", e.Analyzed},
		{"Good targets", e.GoodTargets},
		{"Errors", e.Errors},
	}
	for _, r := range rows {
		fmt.Fprintf(h.w, "  %s %s\n", ui.StatLabelStyle.Render(r.label+":"), ui.StatValueStyle.Render(fmt.Sprint(r.value)))
	}
	fmt.Fprintf(h.w, "  %s %s\n", ui.StatLabelStyle.Render("Duration:"), ui.StatValueStyle.Render(fmt.Sprintf("%.1fs", e.DurationSec)))
}

// EventTypes returns nil to receive every event.
func (h *ConsoleHook) EventTypes() []events.EventType { return nil }
