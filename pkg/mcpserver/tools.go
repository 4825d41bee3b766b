package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/report"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
)

// progressInterval paces progress notifications while start_scan waits.
const progressInterval = time.Second

func (s *Server) registerTools() {
	s.addStartScanTool()
	s.addGetProgressTool()
	s.addListProgramsTool()
	s.addExportReportTool()
}

// ═══════════════════════════════════════════════════════════════════════════
// start_scan
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addStartScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "start_scan",
			Title: "Start Catalog Scan",
			Description: `Fetch the HackerOne program catalog, store every program with its scope, then probe and score each URL asset.

USE THIS TOOL WHEN:
• The user wants fresh data about bug-bounty programs
• The user asks which programs have likely XSS attack surface

Requests go to HackerOne and to every in-scope URL. Only one scan runs at a time.

EXAMPLE INPUTS:
• Quick sample: {"limit": 5, "scope_limit": 3}
• Paying programs with safe harbor: {"require_bounties": true, "require_safe_harbor": true}
• Explicit credentials: {"username": "alice", "token": "..."}`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"username":            map[string]any{"type": "string", "description": "HackerOne API username. Omit to use saved credentials."},
					"token":               map[string]any{"type": "string", "description": "HackerOne API token. Omit to use saved credentials."},
					"limit":               map[string]any{"type": "integer", "minimum": 0, "description": "Randomly sample this many programs. 0 scans all."},
					"scope_limit":         map[string]any{"type": "integer", "minimum": 0, "description": "Randomly sample this many scope targets per program. 0 keeps all."},
					"require_submission":  map[string]any{"type": "boolean", "description": "Only programs open for submissions."},
					"require_bounties":    map[string]any{"type": "boolean", "description": "Only programs that pay bounties."},
					"require_open_scope":  map[string]any{"type": "boolean", "description": "Only open-scope programs."},
					"require_safe_harbor": map[string]any{"type": "boolean", "description": "Only programs with gold-standard safe harbor."},
					"wait":                map[string]any{"type": "boolean", "description": "Block until the scan finishes. Defaults to true over stdio."},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				DestructiveHint: boolPtr(false),
				IdempotentHint:  false,
				OpenWorldHint:   boolPtr(true),
				Title:           "Start Catalog Scan",
			},
		},
		s.handleStartScan,
	)
}

type startScanArgs struct {
	Username          string `json:"username"`
	Token             string `json:"token"`
	Limit             int    `json:"limit"`
	ScopeLimit        int    `json:"scope_limit"`
	RequireSubmission bool   `json:"require_submission"`
	RequireBounties   bool   `json:"require_bounties"`
	RequireOpenScope  bool   `json:"require_open_scope"`
	RequireSafeHarbor bool   `json:"require_safe_harbor"`
	Wait              *bool  `json:"wait"`
}

type startScanResult struct {
	Total    int            `json:"total"`
	Finished bool           `json:"finished"`
	Progress model.Progress `json:"progress"`
	Findings []Finding      `json:"findings,omitempty"`
}

func (s *Server) handleStartScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args startScanArgs
	if err := parseArgs(req, &args); err != nil {
		return enrichedError(err.Error(), []string{"Pass limit and scope_limit as integers and the require_* fields as booleans."}), nil
	}

	creds := model.Credentials{Username: args.Username, Token: args.Token}
	if !creds.Valid() && s.store != nil {
		if saved, err := s.store.Credentials(ctx); err == nil {
			creds = saved
		}
	}

	total, err := s.scanner.Start(ctx, scan.Request{
		Credentials: creds,
		Limit:       max(args.Limit, 0),
		ScopeLimit:  max(args.ScopeLimit, 0),
		Requirements: catalog.Requirements{
			Submission: args.RequireSubmission,
			Bounties:   args.RequireBounties,
			OpenScope:  args.RequireOpenScope,
			SafeHarbor: args.RequireSafeHarbor,
		},
	})
	if err != nil {
		msg, steps := startFailure(err)
		s.logger.Info("mcp start_scan failed", slog.String("error", err.Error()))
		return enrichedError(msg, steps), nil
	}
	logToSession(ctx, req, logInfo, fmt.Sprintf("scan started: %d programs", total))

	wait := s.syncMode.Load()
	if args.Wait != nil {
		wait = *args.Wait
	}
	result := startScanResult{Total: total}
	if wait {
		result.Finished = s.waitForScan(ctx, req)
		if result.Finished {
			result.Findings = s.hook.Findings()
		}
	}
	result.Progress = s.scanner.Progress()
	return jsonResult(result)
}

// waitForScan blocks until the scan ends or ctx is cancelled, sending a
// progress notification every progressInterval.
func (s *Server) waitForScan(ctx context.Context, req *mcp.CallToolRequest) bool {
	done := make(chan struct{})
	go func() {
		s.scanner.Wait()
		close(done)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return true
		case <-ctx.Done():
			logToSession(context.WithoutCancel(ctx), req, logWarning, "stopped waiting; the scan keeps running")
			return false
		case <-ticker.C:
			notifyProgress(ctx, req, s.scanner.Progress())
		}
	}
}

func startFailure(err error) (string, []string) {
	switch {
	case errors.Is(err, scan.ErrMissingCredentials):
		return "Username and token are required",
			[]string{"Pass username and token, or save credentials through the web UI first."}
	case errors.Is(err, scan.ErrScanInProgress):
		return "A scan is already in progress",
			[]string{"Call get_progress and retry once status is complete or error."}
	case errors.Is(err, catalog.ErrNoQualifyingPrograms):
		return "No programs found that meet the specified requirements",
			[]string{"Drop one of the require_* filters."}
	case errors.Is(err, catalog.ErrNoPrograms):
		return "No programs found", nil
	case errors.Is(err, catalog.ErrUnauthorized):
		return "Invalid credentials: " + err.Error(),
			[]string{"Check the HackerOne username and API token."}
	default:
		return "Failed to fetch programs from API: " + err.Error(), nil
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// get_progress
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addGetProgressTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "get_progress",
			Title:       "Get Scan Progress",
			Description: "Return the current scan progress snapshot: status, programs done out of total, the program and scope target being worked on.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Get Scan Progress",
			},
		},
		s.handleGetProgress,
	)
}

type progressResult struct {
	model.Progress `json:",inline"`
	Percent float64 `json:"percent"`
	Summary string  `json:"summary"`
}

func (s *Server) handleGetProgress(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := s.scanner.Progress()
	return jsonResult(progressResult{Progress: p, Percent: p.Percent(), Summary: progressLine(p)})
}

// ═══════════════════════════════════════════════════════════════════════════
// list_programs
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addListProgramsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "list_programs",
			Title: "List Stored Programs",
			Description: `Browse programs stored by earlier scans, ordered by name, with per-program target and verdict counts.

EXAMPLE INPUTS:
• Everything: {}
• Name search: {"search": "shop"}
• Paying programs only: {"filter": {"offers_bounties": true}}`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"search": map[string]any{"type": "string", "description": "Substring of handle or name."},
					"filter": map[string]any{
						"type":        "object",
						"description": "Column filters: offers_bounties, open_scope, fast_payments, bookmarked (bool); min_bounty (number); state, submission_state, currency, name, handle (substring).",
					},
					"limit": map[string]any{"type": "integer", "minimum": 0, "description": "Return at most this many programs. 0 returns all."},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "List Stored Programs",
			},
		},
		s.handleListPrograms,
	)
}

type listProgramsArgs struct {
	Search string         `json:"search"`
	Filter map[string]any `json:"filter"`
	Limit  int            `json:"limit"`
}

type programSummary struct {
	Handle         string `json:"handle"`
	Name           string `json:"name"`
	State          string `json:"state"`
	OffersBounties bool   `json:"offers_bounties"`
	SafeHarbor     bool   `json:"gold_standard_safe_harbor"`
	Targets        int    `json:"targets"`
	Probed         int    `json:"probed"`
	GoodReflected  int    `json:"good_reflected_stored"`
	GoodDOM        int    `json:"good_dom"`
}

type listProgramsResult struct {
	Total    int              `json:"total"`
	Returned int              `json:"returned"`
	Programs []programSummary `json:"programs"`
}

func (s *Server) handleListPrograms(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listProgramsArgs
	if err := parseArgs(req, &args); err != nil {
		return enrichedError(err.Error(), []string{"filter must be a JSON object."}), nil
	}
	programs, err := s.store.ListPrograms(ctx, store.Query{Search: args.Search, Filter: args.Filter})
	if err != nil {
		return enrichedError("listing programs: "+err.Error(), nil), nil
	}

	result := listProgramsResult{Total: len(programs), Programs: []programSummary{}}
	if args.Limit > 0 && len(programs) > args.Limit {
		programs = programs[:args.Limit]
	}
	for _, p := range programs {
		result.Programs = append(result.Programs, summarize(p))
	}
	result.Returned = len(result.Programs)
	return jsonResult(result)
}

func summarize(p store.ProgramView) programSummary {
	out := programSummary{
		Handle:         p.Handle,
		Name:           p.DisplayName(),
		State:          p.State,
		OffersBounties: p.OffersBounties,
		SafeHarbor:     p.GoldStandardSafeHarbor,
		Targets:        len(p.ScopeTargets),
	}
	for _, t := range p.ScopeTargets {
		if t.TestResult != nil {
			out.Probed++
		}
		if t.XSSAnalysis != nil {
			if t.XSSAnalysis.GoodReflectedStored {
				out.GoodReflected++
			}
			if t.XSSAnalysis.GoodDOM {
				out.GoodDOM++
			}
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// export_report
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addExportReportTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "export_report",
			Title:       "Export Report",
			Description: "Render every stored program as a CSV sheet (one row per scope target) or a plain-text summary. PDF is only served by the HTTP export endpoint.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"format": map[string]any{
						"type":        "string",
						"description": "Report format.",
						"enum":        []string{"text", "csv"},
						"default":     "text",
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Export Report",
			},
		},
		s.handleExportReport,
	)
}

type exportReportArgs struct {
	Format string `json:"format"`
}

func (s *Server) handleExportReport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args exportReportArgs
	if err := parseArgs(req, &args); err != nil {
		return enrichedError(err.Error(), nil), nil
	}
	if args.Format == "" {
		args.Format = string(report.FormatText)
	}
	format, err := report.ParseFormat(args.Format)
	if err != nil || format == report.FormatPDF {
		return enrichedError(fmt.Sprintf("unsupported format %q", args.Format), []string{`Use "text" or "csv".`}), nil
	}

	programs, err := s.store.ListPrograms(ctx, store.Query{})
	if err != nil {
		return enrichedError("listing programs: "+err.Error(), nil), nil
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, format, programs, report.Options{}); err != nil {
		return enrichedError("rendering report: "+err.Error(), nil), nil
	}
	return textResult(buf.String()), nil
}
