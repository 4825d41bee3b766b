package events

// ErrorEvent is emitted when a step fails. Non-fatal errors skip one unit
// of work; a fatal error ends the scan.
type ErrorEvent struct {
	BaseEvent
	Stage   Stage  `json:"stage"`
	Program string `json:"program,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}
