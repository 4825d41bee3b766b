// Package duration provides canonical time constants for the entire codebase.
//
// Usage:
//
//	client := httpclient.New(httpclient.AssetConfig(duration.ProbeTimeout, defaults.MaxRedirects, defaults.UABrowser))
//	pacer := ratelimit.NewPacer(duration.AssetDelay)
package duration

import "time"

// ============================================================================
// HTTP TIMEOUTS
// ============================================================================

const (
	// ProbeTimeout bounds one reachability GET (10s).
	ProbeTimeout = 10 * time.Second

	// AnalysisTimeout bounds one analysis GET (15s).
	AnalysisTimeout = 15 * time.Second

	// CatalogTimeout bounds one catalog API page (30s).
	CatalogTimeout = 30 * time.Second

	// DialTimeout bounds connection establishment (10s).
	DialTimeout = 10 * time.Second

	// TLSHandshake bounds the TLS handshake (10s).
	TLSHandshake = 10 * time.Second

	// IdleConn is how long pooled connections live (90s).
	IdleConn = 90 * time.Second
)

// ============================================================================
// SCAN PACING
// ============================================================================

const (
	// ProgramDelay is the pause after each program (50ms).
	ProgramDelay = 50 * time.Millisecond

	// AssetDelay is the pause after each probed asset (1s).
	AssetDelay = 1 * time.Second

	// PatternMatchTimeout bounds one regexp2 evaluation (2s).
	PatternMatchTimeout = 2 * time.Second
)

// ============================================================================
// SERVERS & TELEMETRY
// ============================================================================

const (
	// ServerRead is the API server read timeout (15s).
	ServerRead = 15 * time.Second

	// ServerShutdown is the graceful shutdown window (10s).
	ServerShutdown = 10 * time.Second

	// SignalGrace is how long a second Ctrl-C is awaited before hard exit (5s).
	SignalGrace = 5 * time.Second

	// TelemetryShutdown bounds OTel flush on close (5s).
	TelemetryShutdown = 5 * time.Second

	// TelemetryConnect bounds exporter setup (10s).
	TelemetryConnect = 10 * time.Second

	// WebSocketWrite bounds a single frame write to an observer (5s).
	WebSocketWrite = 5 * time.Second

	// WebhookTimeout bounds one webhook delivery (10s).
	WebhookTimeout = 10 * time.Second

	// WebhookBackoff is the first retry delay of a webhook; it doubles (1s).
	WebhookBackoff = 1 * time.Second

	// WebhookDrain bounds how long Close waits for queued deliveries (30s).
	WebhookDrain = 30 * time.Second
)
