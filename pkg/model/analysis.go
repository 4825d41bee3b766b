package model

import "time"

// Analysis is one XSS-suitability evaluation of a scope target. The
// reflected/stored and DOM verdicts are independent.
type Analysis struct {
	ID                      uint                `json:"id" gorm:"primaryKey"`
	ScopeTargetID           uint                `json:"scope_target_id" gorm:"index;not null"`
	GoodReflectedStored     bool                `json:"is_good_reflected_stored_target"`
	GoodDOM                 bool                `json:"is_good_dom_target"`
	ReflectedStoredScore    int                 `json:"reflected_stored_score"`
	DOMScore                int                 `json:"dom_score"`
	ReflectedStoredReason   string              `json:"reflected_stored_reason"`
	DOMReason               string              `json:"dom_reason"`
	StatusCode              int                 `json:"status_code"`
	Frameworks              []string            `json:"frameworks" gorm:"serializer:json"`
	HasCSP                  bool                `json:"has_csp"`
	CSPStrict               bool                `json:"csp_strict"`
	HasWAF                  bool                `json:"has_waf"`
	HasAuth                 bool                `json:"has_auth"`
	CustomJSCount           int                 `json:"custom_js_count"`
	SinkCount               int                 `json:"dangerous_sinks_count"`
	SourceCount             int                 `json:"sources_count"`
	PrototypePollutionCount int                 `json:"prototype_pollution_count"`
	VulnerableLibraries     []VulnerableLibrary `json:"vulnerable_libraries" gorm:"serializer:json"`
	Data                    AnalysisData        `json:"analysis_data" gorm:"serializer:json"`
	TestedAt                time.Time           `json:"test_date" gorm:"index"`
}

// VulnerableLibrary is a library whose detected version is on the known
// vulnerable list.
type VulnerableLibrary struct {
	Library string `json:"library"`
	Version string `json:"version"`
}

// DOMSignals are the pattern counts found in the raw page.
type DOMSignals struct {
	Sinks               int  `json:"sinks"`
	Sources             int  `json:"sources"`
	PrototypePollution  int  `json:"prototypePollution"`
	MergeOperations     int  `json:"mergeOperations"`
	FrameworkUnsafe     int  `json:"frameworkUnsafe"`
	PostMessageHandlers int  `json:"postMessageHandlers"`
	RiskyPostMessage    int  `json:"riskyPostMessage"`
	InlineScripts       int  `json:"inlineScripts"`
	HasUserInput        bool `json:"hasUserInput"`
	HasContentEditable  bool `json:"hasContentEditable"`
}

// AnalysisData is the raw evidence kept alongside the verdicts.
type AnalysisData struct {
	Frameworks     []string          `json:"frameworks"`
	JSFiles        []string          `json:"jsFiles"`
	DOM            DOMSignals        `json:"domAnalysis"`
	CSPHeader      string            `json:"cspHeader"`
	Headers        map[string]string `json:"headers"`
	PageTitle      string            `json:"pageTitle,omitempty"`
	FormCount      int               `json:"formCount"`
	PatternVersion string            `json:"patternVersion,omitempty"`
}
