package model

import "time"

// ScanStatus is the lifecycle state of a scan.
type ScanStatus string

const (
	StatusIdle     ScanStatus = "idle"
	StatusScanning ScanStatus = "scanning"
	StatusComplete ScanStatus = "complete"
	StatusError    ScanStatus = "error"
)

// IsTerminal reports whether no further transitions are expected.
func (s ScanStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// Progress messages broadcast while scanning.
const (
	MessageFetchingPrograms = "Fetching List of Public Programs"
	MessageFetchingScope    = "Fetching Scope Targets"
	MessageTestingTargets   = "Testing & Analyzing Scope Targets"
	MessageTestingTarget    = "Testing & Analyzing Scope Target"
)

// Progress is a snapshot of an in-flight scan. Field names match the
// progress payload the web client consumes.
type Progress struct {
	SessionID                string     `json:"sessionId,omitempty"`
	Current                  int        `json:"current"`
	Total                    int        `json:"total"`
	Status                   ScanStatus `json:"status"`
	Message                  string     `json:"message"`
	CurrentProgram           string     `json:"currentProgram,omitempty"`
	ScopeCount               *int       `json:"scopeCount"`
	CurrentScopeTarget       *string    `json:"currentScopeTarget"`
	CurrentScopeTargetNumber int        `json:"currentScopeTargetNumber"`
	TotalScopeTargets        int        `json:"totalScopeTargets"`
	StartedAt                time.Time  `json:"startedAt,omitzero"`
	UpdatedAt                time.Time  `json:"updatedAt,omitzero"`
}

// IdleProgress is the state before any scan has run.
func IdleProgress() Progress {
	return Progress{Status: StatusIdle}
}

// Clone returns a deep copy safe to hand to observers.
func (p Progress) Clone() Progress {
	c := p
	if p.ScopeCount != nil {
		v := *p.ScopeCount
		c.ScopeCount = &v
	}
	if p.CurrentScopeTarget != nil {
		v := *p.CurrentScopeTarget
		c.CurrentScopeTarget = &v
	}
	return c
}

// ClearScope resets the per-program scope fields.
func (p *Progress) ClearScope() {
	p.ScopeCount = nil
	p.CurrentScopeTarget = nil
	p.CurrentScopeTargetNumber = 0
	p.TotalScopeTargets = 0
}

// Percent returns Current/Total as a percentage.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}
