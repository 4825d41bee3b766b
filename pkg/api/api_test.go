package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/events"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeScanner struct {
	mu       sync.Mutex
	requests []scan.Request
	total    int
	err      error
	progress model.Progress
}

func (f *fakeScanner) Start(_ context.Context, req scan.Request) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !req.Credentials.Valid() {
		return 0, scan.ErrMissingCredentials
	}
	f.requests = append(f.requests, req)
	return f.total, f.err
}

func (f *fakeScanner) Progress() model.Progress { return f.progress }

type fakeVerifier struct{ err error }

func (f fakeVerifier) VerifyCredentials(context.Context, model.Credentials) error { return f.err }

type fixture struct {
	store   *store.GormStore
	scanner *fakeScanner
	server  *Server
	handler http.Handler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(store.MemoryPath, store.WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sc := &fakeScanner{total: 7, progress: model.IdleProgress()}
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	srv := New(st, sc, fakeVerifier{}, opts...)
	return &fixture{store: st, scanner: sc, server: srv, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsonutil.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func seed(t *testing.T, st *store.GormStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertProgram(ctx, &model.Program{Handle: "acme", Name: "Acme", OffersBounties: true, State: "public_mode"}))
	require.NoError(t, st.UpsertProgram(ctx, &model.Program{Handle: "globex", Name: "Globex"}))
	saved, err := st.ReplaceScope(ctx, "acme", []model.ScopeTarget{
		{AssetType: "URL", Target: "https://app.acme.test", EligibleForBounty: true},
	})
	require.NoError(t, err)
	code := 200
	require.NoError(t, st.AddProbeResult(ctx, &model.ProbeResult{ScopeTargetID: saved[0].ID, StatusCode: &code, TestedAt: time.Now()}))
}

func TestScan_Started(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/scan",
		`{"username":"u","token":"t","limit":"5","scopeLimit":3,"requireBounties":true,"requireSafeHarbor":true}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(7), body["total"])

	require.Len(t, f.scanner.requests, 1)
	req := f.scanner.requests[0]
	assert.Equal(t, 5, req.Limit)
	assert.Equal(t, 3, req.ScopeLimit)
	assert.Equal(t, catalog.Requirements{Bounties: true, SafeHarbor: true}, req.Requirements)
}

func TestScan_EmptyLimitsMeanNoSampling(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/scan", `{"username":"u","token":"t","limit":"","scopeLimit":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.scanner.requests[0].Limit)
	assert.Zero(t, f.scanner.requests[0].ScopeLimit)
}

func TestScan_LimitsClamped(t *testing.T) {
	tests := []struct {
		body       string
		limit      int
		scopeLimit int
	}{
		{`{"username":"u","token":"t","limit":1e30,"scopeLimit":"1e300"}`, math.MaxInt32, math.MaxInt32},
		{`{"username":"u","token":"t","limit":-5,"scopeLimit":"-1e30"}`, 0, 0},
		{`{"username":"u","token":"t","limit":"NaN","scopeLimit":2.9}`, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/scan", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, f.scanner.requests, 1)
			assert.Equal(t, tt.limit, f.scanner.requests[0].Limit)
			assert.Equal(t, tt.scopeLimit, f.scanner.requests[0].ScopeLimit)
		})
	}
}

func TestScan_MissingCredentials(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{"", `{}`, `{"username":"u"}`} {
		rec := f.do(t, http.MethodPost, "/api/scan", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Username and token are required", decode[errorBody](t, rec).Error)
	}
}

func TestScan_MalformedBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/scan", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/scan", `{"username":"u","token":"t","limit":"many"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScan_ErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{scan.ErrScanInProgress, http.StatusConflict, "A scan is already in progress"},
		{catalog.ErrNoPrograms, http.StatusNotFound, "No programs found"},
		{catalog.ErrNoQualifyingPrograms, http.StatusNotFound, "No programs found that meet the specified requirements"},
		{fmt.Errorf("%w: page 2: boom", catalog.ErrUpstream), http.StatusInternalServerError, "Failed to fetch programs from API"},
		{fmt.Errorf("%w: %w: page 1: 401", catalog.ErrUpstream, catalog.ErrUnauthorized), http.StatusUnauthorized, "Invalid credentials"},
		{errors.New("disk full"), http.StatusInternalServerError, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			f := newFixture(t)
			f.scanner.err = tt.err
			rec := f.do(t, http.MethodPost, "/api/scan", `{"username":"u","token":"t"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode[errorBody](t, rec).Error)
		})
	}
}

func TestScan_UpstreamDetails(t *testing.T) {
	f := newFixture(t)
	f.scanner.err = fmt.Errorf("%w: page 2: boom", catalog.ErrUpstream)
	rec := f.do(t, http.MethodPost, "/api/scan", `{"username":"u","token":"t"}`)
	assert.Contains(t, decode[errorBody](t, rec).Details, "boom")
}

func TestTestCredentials(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/test-credentials", `{"username":"u"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		f.server.verifier = fakeVerifier{err: catalog.ErrUnauthorized}
		f.handler = f.server.Handler()

		rec := f.do(t, http.MethodPost, "/api/test-credentials", `{"username":"u","token":"bad"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "Invalid credentials", body.Error)
		assert.NotEmpty(t, body.Details)

		_, err := f.store.Credentials(context.Background())
		assert.ErrorIs(t, err, store.ErrNoCredentials, "rejected credentials are not saved")
	})

	t.Run("valid credentials are saved", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/test-credentials", `{"username":"alice","token":"tok"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Credentials are valid", body["message"])

		rec = f.do(t, http.MethodGet, "/api/credentials", "")
		require.Equal(t, http.StatusOK, rec.Code)
		creds := decode[map[string]any](t, rec)
		assert.Equal(t, "alice", creds["username"])
		assert.Equal(t, "tok", creds["token"])
	})
}

func TestCredentials_NoneSaved(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":null,"token":null}`, rec.Body.String())
}

func TestPrograms(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store)

	rec := f.do(t, http.MethodGet, "/api/programs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]map[string]any](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, "acme", all[0]["handle"], "ordered by name")

	targets := all[0]["scope_targets"].([]any)
	require.Len(t, targets, 1)
	target := targets[0].(map[string]any)
	assert.Equal(t, "https://app.acme.test", target["target"])
	assert.Equal(t, float64(200), target["test_result"].(map[string]any)["status_code"])
	assert.Nil(t, target["xss_analysis"])

	rec = f.do(t, http.MethodGet, "/api/programs?search=glob", "")
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = f.do(t, http.MethodGet, `/api/programs?filter={"offers_bounties":true}`, "")
	bounty := decode[[]map[string]any](t, rec)
	require.Len(t, bounty, 1)
	assert.Equal(t, "acme", bounty[0]["handle"])

	rec = f.do(t, http.MethodGet, "/api/programs?filter=not-json", "")
	assert.Len(t, decode[[]map[string]any](t, rec), 2, "malformed filter is ignored")
}

func TestProgramsEmpty(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/programs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store)
	rec := f.do(t, http.MethodGet, "/api/programs/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":2}`, rec.Body.String())
}

func TestExport(t *testing.T) {
	f := newFixture(t, WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }))
	seed(t, f.store)

	rec := f.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=hackerone-scan-report.csv", rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Program Handle,Program Name")
	assert.Contains(t, rec.Body.String(), "acme,Acme,public_mode,,Yes")

	rec = f.do(t, http.MethodGet, "/api/export?format=pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=hackerone-scan-report.pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = f.do(t, http.MethodGet, "/api/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressAndHealth(t *testing.T) {
	f := newFixture(t)
	f.scanner.progress = model.Progress{Current: 2, Total: 4, Status: model.StatusScanning, Message: model.MessageFetchingScope}

	rec := f.do(t, http.MethodGet, "/api/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[model.Progress](t, rec)
	assert.Equal(t, 2, p.Current)
	assert.Equal(t, model.StatusScanning, p.Status)

	rec = f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/scan", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodOptions, "/api/scan", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetricsMount(t *testing.T) {
	f := newFixture(t, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "bountyscout_up 1\n")
	})))
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bountyscout_up 1")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

type wsConn struct {
	io.Reader
	io.Writer
	conn net.Conn
}

func dialWS(t *testing.T, url string) *wsConn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, br, _, err := ws.Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return &wsConn{Reader: r, Writer: conn, conn: conn}
}

func readProgress(t *testing.T, c *wsConn) progressMessage {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	data, op, err := wsutil.ReadServerData(c)
	require.NoError(t, err)
	require.Equal(t, ws.OpText, op)
	var msg progressMessage
	require.NoError(t, jsonutil.Unmarshal(data, &msg))
	return msg
}

func TestHub_SnapshotThenBroadcast(t *testing.T) {
	current := model.Progress{Current: 1, Total: 3, Status: model.StatusScanning}
	hub := NewHub(func() model.Progress { return current }, discardLogger())
	defer hub.Close()

	f := newFixture(t, WithHub(hub))
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	c := dialWS(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")

	first := readProgress(t, c)
	assert.Equal(t, "progress", first.Type)
	assert.Equal(t, 1, first.Data.Current)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	next := model.Progress{Current: 2, Total: 3, Status: model.StatusScanning, CurrentProgram: "acme"}
	require.NoError(t, hub.OnEvent(context.Background(), events.NewProgress(next)))

	second := readProgress(t, c)
	assert.Equal(t, 2, second.Data.Current)
	assert.Equal(t, "acme", second.Data.CurrentProgram)
}

func TestHub_AttachSnapshotPrecedesBroadcast(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	hub := NewHub(func() model.Progress {
		close(entered)
		<-release
		return model.Progress{Current: 1, Total: 3, Status: model.StatusScanning}
	}, discardLogger())
	defer hub.Close()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	c := dialWS(t, "ws"+strings.TrimPrefix(ts.URL, "http"))
	<-entered
	// Registered while the attach snapshot is still being taken.
	assert.Equal(t, 1, hub.Clients())

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		hub.Broadcast(model.Progress{Current: 2, Total: 3, Status: model.StatusScanning})
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.Equal(t, 1, readProgress(t, c).Data.Current)
	assert.Equal(t, 2, readProgress(t, c).Data.Current)
	<-sent
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	defer hub.Close()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	c := dialWS(t, "ws"+strings.TrimPrefix(ts.URL, "http"))
	first := readProgress(t, c)
	assert.Equal(t, model.StatusIdle, first.Data.Status)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, wsutil.WriteClientMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
	c.conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(model.Progress{Status: model.StatusComplete})
}

func TestServe_GracefulShutdown(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
