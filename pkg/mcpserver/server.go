package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
)

var _ dispatcher.Hook = (*Hook)(nil)

// The SDK defines LoggingLevel as a bare string type.
const (
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
)

// Scanner starts scans and reports their progress.
type Scanner interface {
	Start(ctx context.Context, req scan.Request) (int, error)
	Progress() model.Progress
	Wait()
}

// Store is the read side of persistence.
type Store interface {
	ListPrograms(ctx context.Context, q store.Query) ([]store.ProgramView, error)
	Credentials(ctx context.Context) (model.Credentials, error)
}

// Config holds MCP server dependencies.
type Config struct {
	Scanner Scanner
	Store   Store
	Logger  *slog.Logger
}

// Server wraps the MCP server with bountyscout tools.
type Server struct {
	mcp      *mcp.Server
	scanner  Scanner
	store    Store
	hook     *Hook
	logger   *slog.Logger
	syncMode atomic.Bool
}

// New creates a server with all tools and resources registered.
func New(cfg Config) *Server {
	s := &Server{
		scanner: cfg.Scanner,
		store:   cfg.Store,
		hook:    NewHook(),
		logger:  cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ToolName,
			Title:   "bountyscout MCP Server",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Hook returns the findings collector to register on the scan dispatcher.
func (s *Server) Hook() *Hook { return s.hook }

// IsSyncMode reports whether start_scan blocks by default.
func (s *Server) IsSyncMode() bool { return s.syncMode.Load() }

// RunStdio serves over stdin/stdout. The process exits with the client, so
// start_scan waits for the scan unless the caller passes wait=false.
func (s *Server) RunStdio(ctx context.Context) error {
	s.syncMode.Store(true)
	s.logger.Info("mcp stdio transport started", slog.Bool("sync", true))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport at /mcp and a health
// probe at /health.
func (s *Server) HTTPHandler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", defaults.ContentTypeJSON)
		_ = jsonutil.Write(w, map[string]string{"status": "ok", "service": defaults.ToolName + "-mcp"})
	})
	mux.Handle("/mcp", streamable)
	mux.Handle("/", streamable)
	return s.recovery(mux)
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				s.logger.Error("panic in MCP handler",
					slog.Any("panic", err),
					slog.String("stack", string(debug.Stack())))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// notifyProgress sends a progress notification when the client supplied
// a progress token.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, p model.Progress) {
	token := req.Params.GetProgressToken()
	if token == nil || req.Session == nil {
		return
	}
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      float64(p.Current),
		Total:         float64(p.Total),
		Message:       progressLine(p),
	})
}

// logToSession sends a structured log message to the client.
func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: defaults.ToolName,
		Data:   data,
	})
}

func progressLine(p model.Progress) string {
	line := fmt.Sprintf("%d/%d %s", p.Current, p.Total, p.Status)
	if p.CurrentProgram != "" {
		line += " " + p.CurrentProgram
	}
	if p.Message != "" {
		line += ": " + p.Message
	}
	return line
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// enrichedError returns an IsError result with recovery guidance so the
// model can correct its next call.
func enrichedError(msg string, recoverySteps []string) *mcp.CallToolResult {
	type errResponse struct {
		Error         string   `json:"error"`
		RecoverySteps []string `json:"recovery_steps,omitempty"`
	}
	data, _ := jsonutil.MarshalIndent(errResponse{Error: msg, RecoverySteps: recoverySteps}, "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}

func boolPtr(b bool) *bool { return &b }

// parseArgs decodes the raw tool arguments into dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

const serverInstructions = `You are operating bountyscout. It pulls the public bug-bounty program catalog from HackerOne, stores every program with its in-scope assets, probes each URL asset once and scores the landing page for reflected/stored and DOM-based XSS attack surface.

WORKFLOW:
1. start_scan with the user's HackerOne username and API token (or none, to reuse saved credentials). Use limit and scope_limit for a quick sample.
2. get_progress while the scan runs, or read bountyscout://progress.
3. list_programs to browse stored programs; filter by bounties or search by name.
4. bountyscout://findings lists targets that met either XSS verdict in the latest scan.
5. export_report for a CSV or text summary.

Only one scan runs at a time. Scores are heuristic indicators of attack surface, not confirmed vulnerabilities.`
