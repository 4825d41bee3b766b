// Package defaults provides canonical default values for the entire codebase.
// This is the single source of truth for runtime configuration defaults.
//
// Usage:
//
//	cfg.Port = defaults.Port
//	req.Header.Set("Accept", defaults.ContentTypeJSON)
//
// Do not hardcode page sizes, ports or limits elsewhere; reference the
// constant from this package instead.
package defaults

import "fmt"

// Version is the current bountyscout version.
const Version = "0.4.0"

// ToolName is used for service names, user agents and report titles.
const ToolName = "bountyscout"

// ============================================================================
// CATALOG API
// ============================================================================

const (
	// CatalogBaseURL is the HackerOne hacker API root.
	CatalogBaseURL = "https://api.hackerone.com/v1"

	// PageSize is the page[size] used for program and scope pagination (100).
	PageSize = 100

	// VerifyPageSize is the page[size] used when only validating credentials (1).
	VerifyPageSize = 1

	// CatalogRequestsPerSecond caps outbound catalog calls (0 = unlimited).
	CatalogRequestsPerSecond = 10
)

// ============================================================================
// ASSET FETCHING
// ============================================================================

const (
	// MaxRedirects is the redirect cap for probe and analysis fetches (5).
	MaxRedirects = 5

	// MaxListedJSFiles is how many script URLs are kept in analysis data (10).
	MaxListedJSFiles = 10

	// MaxCSPHeaderLen truncates the stored CSP header (500).
	MaxCSPHeaderLen = 500

	// MaxReasons is how many scoring reasons are joined into a verdict (6).
	MaxReasons = 6
)

// ============================================================================
// SERVER & STORAGE
// ============================================================================

const (
	// Port is the HTTP API port when PORT is unset (5000).
	Port = 5000

	// DatabasePath is the sqlite database file.
	DatabasePath = "database.sqlite"

	// MetricsPath is the Prometheus scrape path.
	MetricsPath = "/metrics"

	// WebSocketPath is where progress observers attach.
	WebSocketPath = "/ws"

	// OTelEndpoint is the default OTLP/gRPC collector address.
	OTelEndpoint = "localhost:4317"

	// WebhookRetries is how many times a webhook delivery is attempted (3).
	WebhookRetries = 3

	// WebhookQueue is how many events may wait for webhook delivery before
	// new ones are dropped (64).
	WebhookQueue = 64
)

// ============================================================================
// CONTENT TYPES & USER AGENTS
// ============================================================================

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"

	// UABrowser is sent to scope assets so they render their normal page.
	UABrowser = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// UserAgent returns the tool user agent used for catalog API calls.
func UserAgent(context string) string {
	if context == "" {
		return fmt.Sprintf("%s/%s", ToolName, Version)
	}
	return fmt.Sprintf("%s/%s (%s)", ToolName, Version, context)
}
