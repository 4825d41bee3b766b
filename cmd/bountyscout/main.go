// Command bountyscout fetches the HackerOne program catalog, probes every
// in-scope URL and scores it for XSS attack surface.
package main

import (
	"fmt"
	"os"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/ui"
)

const toolName = defaults.ToolName

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(defaults.ExitUsage)
	}

	switch os.Args[1] {
	case "serve", "server", "web":
		runServe()
	case "scan":
		runScan()
	case "programs", "list":
		runPrograms()
	case "export", "report":
		runExport()
	case "verify", "test-credentials":
		runVerify()
	case "mcp":
		runMCP()
	case "-v", "--version", "version":
		printVersion()
	case "-h", "--help", "help":
		printUsage()
	default:
		ui.PrintError(fmt.Sprintf("unknown command %q", os.Args[1]))
		printUsage()
		os.Exit(defaults.ExitUsage)
	}
}

func printVersion() {
	fmt.Printf("%s %s (commit %s, built %s)\n", toolName, ui.Version, ui.Commit, ui.BuildDate)
}

func printUsage() {
	ui.PrintBanner()
	fmt.Fprintf(os.Stderr, `Usage: %[1]s <command> [flags]

Commands:
  serve      HTTP API, WebSocket progress and metrics (default port %[2]d)
  scan       run one catalog scan in the terminal
  programs   list stored programs
  export     write a csv, pdf or text report of stored programs
  verify     check HackerOne credentials and save them
  mcp        Model Context Protocol server (stdio or --http)
  version    print the version

Run '%[1]s <command> -h' for command flags.
`, toolName, defaults.Port)
}
