package events

// StartEvent is emitted once the program list has been fetched and the
// pipeline is about to run.
type StartEvent struct {
	BaseEvent
	Programs     int          `json:"programs"`
	Config       ScanConfig   `json:"config"`
	Requirements Requirements `json:"requirements"`
}

// ScanConfig contains the limits the scan was started with.
type ScanConfig struct {
	Limit      int   `json:"limit"`
	ScopeLimit int   `json:"scope_limit"`
	ProgramMs  int64 `json:"program_delay_ms"`
	AssetMs    int64 `json:"asset_delay_ms"`
}

// Requirements mirrors the program filters of the scan request.
type Requirements struct {
	Submission bool `json:"submission,omitempty"`
	Bounties   bool `json:"bounties,omitempty"`
	OpenScope  bool `json:"open_scope,omitempty"`
	SafeHarbor bool `json:"safe_harbor,omitempty"`
}
