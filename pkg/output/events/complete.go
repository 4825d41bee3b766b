package events

// CompleteEvent is emitted when a scan reaches a terminal state.
type CompleteEvent struct {
	BaseEvent
	Success     bool    `json:"success"`
	Programs    int     `json:"programs"`
	Targets     int     `json:"targets"`
	Reachable   int     `json:"reachable"`
	Analyzed    int     `json:"analyzed"`
	GoodTargets int     `json:"good_targets"`
	Errors      int     `json:"errors"`
	DurationSec float64 `json:"duration_sec"`
	Message     string  `json:"message,omitempty"`
}
