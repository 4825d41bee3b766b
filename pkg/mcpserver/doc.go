// Package mcpserver exposes bountyscout as a Model Context Protocol (MCP)
// server so an AI assistant can start a catalog scan, watch its progress,
// browse the stored programs and pull a report.
//
// # Capabilities
//
//   - Tools:     start_scan, get_progress, list_programs, export_report
//   - Resources: bountyscout://version, bountyscout://progress,
//     bountyscout://findings
//
// Findings are fed by Hook, which the caller registers on the scan
// dispatcher.
//
// # Transports
//
//   - stdio: the default; start_scan blocks until the scan finishes.
//   - HTTP:  streamable HTTP at /mcp with a /health probe.
//
// # Usage
//
//	srv := mcpserver.New(mcpserver.Config{Scanner: orch, Store: st})
//	disp.RegisterHook(srv.Hook())
//	err := srv.RunStdio(ctx)
package mcpserver
