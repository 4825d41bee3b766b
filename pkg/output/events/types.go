// Package events defines the events a scan emits while it runs.
// All events are designed for JSON serialization; observers receive them
// through the dispatcher in the order they were produced.
//
// BaseEvent is embedded in every concrete event (StartEvent,
// ProgressEvent, TargetEvent, ErrorEvent, CompleteEvent).
package events

import "time"

// EventType represents the type of output event.
type EventType string

const (
	// EventTypeStart indicates a scan has started.
	EventTypeStart EventType = "start"
	// EventTypeProgress carries a progress snapshot.
	EventTypeProgress EventType = "progress"
	// EventTypeTarget indicates one scope target was probed and analyzed.
	EventTypeTarget EventType = "target"
	// EventTypeError indicates a step failed.
	EventTypeError EventType = "error"
	// EventTypeComplete indicates a scan has finished.
	EventTypeComplete EventType = "complete"
)

// Stage names the pipeline step an event refers to.
type Stage string

const (
	StageCatalog  Stage = "catalog"
	StageScope    Stage = "scope"
	StageStore    Stage = "store"
	StageProbe    Stage = "probe"
	StageAnalysis Stage = "analysis"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	ScanID() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Scan string    `json:"scan_id"`
}

// NewBase returns a BaseEvent stamped with the current time.
func NewBase(t EventType, scanID string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now(), Scan: scanID}
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ScanID returns the identifier of the scan that produced this event.
func (e BaseEvent) ScanID() string { return e.Scan }
