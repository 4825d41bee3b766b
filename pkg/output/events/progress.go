package events

import "github.com/waftester/bountyscout/pkg/model"

// ProgressEvent carries a full progress snapshot. Every change to the
// scan session produces one.
type ProgressEvent struct {
	BaseEvent
	Progress model.Progress `json:"progress"`
}

// NewProgress wraps a snapshot.
func NewProgress(p model.Progress) *ProgressEvent {
	return &ProgressEvent{
		BaseEvent: NewBase(EventTypeProgress, p.SessionID),
		Progress:  p,
	}
}
