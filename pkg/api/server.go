// Package api serves the bountyscout HTTP interface: scan control,
// credential checks, the stored catalog, exports, progress over
// WebSocket, health and metrics.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/report"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Scanner starts scans and reports their progress.
type Scanner interface {
	Start(ctx context.Context, req scan.Request) (int, error)
	Progress() model.Progress
}

// Verifier checks catalog credentials.
type Verifier interface {
	VerifyCredentials(ctx context.Context, creds model.Credentials) error
}

// Store is the read side of persistence plus credential storage.
type Store interface {
	ListPrograms(ctx context.Context, q store.Query) ([]store.ProgramView, error)
	CountPrograms(ctx context.Context) (int64, error)
	SaveCredentials(ctx context.Context, c model.Credentials) error
	Credentials(ctx context.Context) (model.Credentials, error)
}

// Server holds the HTTP handlers.
type Server struct {
	store       Store
	scanner     Scanner
	verifier    Verifier
	hub         http.Handler
	metrics     http.Handler
	metricsPath string
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHub mounts a WebSocket handler at /ws.
func WithHub(h http.Handler) Option {
	return func(s *Server) { s.hub = h }
}

// WithMetrics mounts a metrics handler, at /metrics unless
// WithMetricsPath says otherwise.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithMetricsPath moves the metrics handler off the default path.
func WithMetricsPath(p string) Option {
	return func(s *Server) { s.metricsPath = p }
}

// WithClock overrides the export timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates the API server.
func New(st Store, sc Scanner, v Verifier, opts ...Option) *Server {
	s := &Server{store: st, scanner: sc, verifier: v, metricsPath: defaults.MetricsPath, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger = orDefault(s.logger)
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("POST /api/test-credentials", s.handleTestCredentials)
	mux.HandleFunc("GET /api/credentials", s.handleCredentials)
	mux.HandleFunc("GET /api/programs", s.handlePrograms)
	mux.HandleFunc("GET /api/programs/stats", s.handleStats)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET "+s.metricsPath, s.metrics)
	}
	if s.hub != nil {
		mux.Handle("GET "+defaults.WebSocketPath, s.hub)
	}
	return corsMiddleware(recoveryMiddleware(s.logger, securityHeaders(requestLogger(s.logger, mux))))
}

// flexInt accepts a JSON number, a numeric string, "" or null. Values are
// truncated and clamped to [0, math.MaxInt32]; NaN reads as 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", ErrBadRequest, s)
	}
	switch {
	case math.IsNaN(n) || n < 0:
		n = 0
	case n > math.MaxInt32:
		n = math.MaxInt32
	}
	*f = flexInt(n)
	return nil
}

// scanRequest is the POST /api/scan body.
type scanRequest struct {
	Username          string  `json:"username"`
	Token             string  `json:"token"`
	Limit             flexInt `json:"limit"`
	ScopeLimit        flexInt `json:"scopeLimit"`
	RequireSubmission bool    `json:"requireSubmission"`
	RequireBounties   bool    `json:"requireBounties"`
	RequireOpenScope  bool    `json:"requireOpenScope"`
	RequireSafeHarbor bool    `json:"requireSafeHarbor"`
}

func (r scanRequest) toScan() scan.Request {
	return scan.Request{
		Credentials: model.Credentials{Username: r.Username, Token: r.Token},
		Limit:       int(r.Limit),
		ScopeLimit:  int(r.ScopeLimit),
		Requirements: catalog.Requirements{
			Submission: r.RequireSubmission,
			Bounties:   r.RequireBounties,
			OpenScope:  r.RequireOpenScope,
			SafeHarbor: r.RequireSafeHarbor,
		},
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	total, err := s.scanner.Start(r.Context(), body.toScan())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "total": total})
}

func (s *Server) handleTestCredentials(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(r, &creds); err != nil {
		s.writeError(w, err)
		return
	}
	if !creds.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Username and token are required"})
		return
	}
	if err := s.verifier.VerifyCredentials(r.Context(), creds); err != nil {
		s.logger.Info("credential check failed", slog.String("username", creds.Username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid credentials", Details: err.Error()})
		return
	}
	if err := s.store.SaveCredentials(r.Context(), creds); err != nil {
		s.logger.Error("saving credentials failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Credentials are valid"})
}

// credentialsBody renders missing credentials as nulls.
type credentialsBody struct {
	Username *string `json:"username"`
	Token    *string `json:"token"`
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Credentials(r.Context())
	if err != nil {
		if isNoCredentials(err) {
			writeJSON(w, http.StatusOK, credentialsBody{})
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialsBody{Username: &c.Username, Token: &c.Token})
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	programs, err := s.store.ListPrograms(r.Context(), store.Query{
		Search: q.Get("search"),
		Filter: store.ParseFilter(q.Get("filter")),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.CountPrograms(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total": n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	programs, err := s.store.ListPrograms(r.Context(), store.Query{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, programs, report.Options{Generated: s.now()}); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+format.Filename())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, &buf)
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scanner.Progress())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": defaults.ToolName,
		"version": defaults.Version,
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	_ = jsonutil.Write(w, v)
}
