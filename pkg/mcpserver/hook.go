package mcpserver

import (
	"context"
	"sync"

	"github.com/waftester/bountyscout/pkg/output/events"
)

// maxFindings bounds the findings kept in memory.
const maxFindings = 200

// Finding is a scope target whose analysis met either verdict.
type Finding struct {
	Program              string   `json:"program"`
	URL                  string   `json:"url"`
	StatusCode           *int     `json:"status_code"`
	ReflectedStoredScore int      `json:"reflected_stored_score"`
	GoodReflectedStored  bool     `json:"good_reflected_stored"`
	DOMScore             int      `json:"dom_score"`
	GoodDOM              bool     `json:"good_dom"`
	Frameworks           []string `json:"frameworks,omitempty"`
}

// Hook collects findings from the scan dispatcher.
// It implements the dispatcher.Hook interface.
type Hook struct {
	mu       sync.Mutex
	scanID   string
	findings []Finding
}

// NewHook creates an empty Hook.
func NewHook() *Hook {
	return &Hook{}
}

// OnEvent records good targets. A new scan id clears earlier findings.
func (h *Hook) OnEvent(_ context.Context, event events.Event) error {
	e, ok := event.(*events.TargetEvent)
	if !ok || e.Analysis == nil {
		return nil
	}
	if !e.Analysis.GoodReflectedStored && !e.Analysis.GoodDOM {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if e.ScanID() != h.scanID {
		h.scanID = e.ScanID()
		h.findings = h.findings[:0]
	}
	if len(h.findings) >= maxFindings {
		h.findings = h.findings[1:]
	}
	h.findings = append(h.findings, Finding{
		Program:              e.Program,
		URL:                  e.URL,
		StatusCode:           e.Probe.StatusCode,
		ReflectedStoredScore: e.Analysis.ReflectedStoredScore,
		GoodReflectedStored:  e.Analysis.GoodReflectedStored,
		DOMScore:             e.Analysis.DOMScore,
		GoodDOM:              e.Analysis.GoodDOM,
		Frameworks:           e.Analysis.Frameworks,
	})
	return nil
}

// EventTypes subscribes to target events only.
func (h *Hook) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeTarget}
}

// Findings returns a copy of the findings of the latest scan.
func (h *Hook) Findings() []Finding {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Finding, len(h.findings))
	copy(out, h.findings)
	return out
}
