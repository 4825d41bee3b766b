// Package report renders the stored program catalog for export.
//
// The package is organized by format:
//
// # Dispatch (report.go)
//
// Format, ParseFormat, Write and the attachment helpers Filename and
// ContentType used by the HTTP export endpoint.
//
// # Spreadsheet export (csv.go)
//
// CSV writes one row per scope target with the newest probe result,
// prefixed with a UTF-8 BOM and with formula characters neutralized.
//
// # Printable export (pdf.go)
//
// PDF renders one page per program with its flags and scope targets.
//
// # Text summary (template.go)
//
// Template renders a sprig-enabled text/template over the catalog. The
// built-in summary lists good XSS targets per program.
package report
