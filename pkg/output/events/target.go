package events

// TargetEvent is emitted after a scope target has been probed and, when
// reachable, analyzed.
type TargetEvent struct {
	BaseEvent
	Program   string  `json:"program"`
	Target    string  `json:"target"`
	URL       string  `json:"url"`
	Probe     Probe   `json:"probe"`
	Analysis  *Rating `json:"analysis,omitempty"`
	LatencyMs float64 `json:"latency_ms"`
}

// Probe summarizes the reachability check.
type Probe struct {
	StatusCode        *int   `json:"status_code"`
	HasAuthIndicators bool   `json:"has_auth_indicators"`
	BodyHash          string `json:"body_hash,omitempty"`
}

// Rating summarizes both verdicts of an analysis.
type Rating struct {
	ReflectedStoredScore int      `json:"reflected_stored_score"`
	GoodReflectedStored  bool     `json:"good_reflected_stored"`
	DOMScore             int      `json:"dom_score"`
	GoodDOM              bool     `json:"good_dom"`
	Frameworks           []string `json:"frameworks,omitempty"`
}

// Reachable reports whether the probe got any HTTP response.
func (e *TargetEvent) Reachable() bool {
	return e.Probe.StatusCode != nil
}
