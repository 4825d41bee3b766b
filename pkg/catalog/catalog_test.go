package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
)

var testCreds = model.Credentials{Username: "hacker", Token: "s3cret"}

// fakeAPI serves the program and structured scope lists.
type fakeAPI struct {
	mu        sync.Mutex
	programs  []map[string]any
	scopes    map[string][]map[string]any
	failPage  map[int]int
	scopeFail map[string]map[int]int
	garbage   bool
	requests  []string
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hackers/programs", func(w http.ResponseWriter, r *http.Request) {
		n := f.record(r)
		if status, ok := f.failPage[n]; ok {
			w.WriteHeader(status)
			return
		}
		if f.garbage {
			io.WriteString(w, "<html>not json")
			return
		}
		jsonutil.Write(w, pageOf(f.programs, r))
	})
	mux.HandleFunc("GET /hackers/programs/{handle}/structured_scopes", func(w http.ResponseWriter, r *http.Request) {
		n := f.record(r)
		if status, ok := f.scopeFail[r.PathValue("handle")][n]; ok {
			w.WriteHeader(status)
			return
		}
		items, ok := f.scopes[r.PathValue("handle")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		jsonutil.Write(w, pageOf(items, r))
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testCreds.Username || pass != testCreds.Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Accept") != "application/json" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeAPI) record(r *http.Request) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.URL.Path+"?"+r.URL.RawQuery)
	n, _ := strconv.Atoi(r.URL.Query().Get("page[number]"))
	return n
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func pageOf(items []map[string]any, r *http.Request) map[string]any {
	size, _ := strconv.Atoi(r.URL.Query().Get("page[size]"))
	number, _ := strconv.Atoi(r.URL.Query().Get("page[number]"))
	number = max(number, 1)
	start := min((number-1)*size, len(items))
	end := min(start+size, len(items))
	links := map[string]any{"self": "x"}
	if end < len(items) {
		links["next"] = fmt.Sprintf("https://api.example/next?page=%d", number+1)
	}
	return map[string]any{"data": items[start:end], "links": links}
}

func program(handle string, open, bounties bool) map[string]any {
	state := "paused"
	if open {
		state = "open"
	}
	return map[string]any{
		"id":   handle + "-id",
		"type": "program",
		"attributes": map[string]any{
			"handle":                    handle,
			"name":                      "Program " + handle,
			"submission_state":          state,
			"offers_bounties":           bounties,
			"open_scope":                false,
			"gold_standard_safe_harbor": false,
			"bounty_earned_for_user":    12.5,
			"started_accepting_at":      nil,
		},
	}
}

func programs(n int, open, bounties bool) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = program(fmt.Sprintf("p%03d", i), open, bounties)
	}
	return out
}

func scope(id string, assetType, target string) map[string]any {
	return map[string]any{
		"id":   id,
		"type": "structured-scope",
		"attributes": map[string]any{
			"asset_type":       assetType,
			"asset_identifier": target,
			"max_severity":     "critical",
		},
	}
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRequestsPerSecond(0),
		WithPageSize(10),
		WithShuffler(SeededShuffler(7)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func handles(ps []model.RawProgram) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Attributes.Handle
	}
	return out
}

func TestFetchPrograms_AllPages(t *testing.T) {
	api := &fakeAPI{programs: programs(25, false, false)}
	c := newTestClient(api.server(t))

	got, err := c.FetchPrograms(context.Background(), testCreds, Requirements{}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 25)
	assert.Equal(t, 3, api.count())
	assert.Equal(t, "p000", got[0].Attributes.Handle)
	assert.Equal(t, "Program p000", got[0].Attributes.Name)
	assert.InDelta(t, 12.5, got[0].Attributes.BountyEarnedForUser, 0.001)
	assert.Contains(t, api.requests[0], "page%5Bsize%5D=10")
}

func TestFetchPrograms_SkipsItemsWithoutHandle(t *testing.T) {
	items := programs(3, false, false)
	items = append(items,
		map[string]any{"id": "x", "attributes": map[string]any{"name": "nameless"}},
		map[string]any{"id": "y"},
	)
	api := &fakeAPI{programs: items}
	got, err := newTestClient(api.server(t)).FetchPrograms(context.Background(), testCreds, Requirements{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p000", "p001", "p002"}, handles(got))
}

func TestFetchPrograms_Requirements(t *testing.T) {
	items := append(programs(4, true, true), program("closed", false, true), program("free", true, false))
	api := &fakeAPI{programs: items}
	c := newTestClient(api.server(t))

	got, err := c.FetchPrograms(context.Background(), testCreds, Requirements{Submission: true, Bounties: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p000", "p001", "p002", "p003"}, handles(got))

	got, err = c.FetchPrograms(context.Background(), testCreds, Requirements{Submission: true}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestFetchPrograms_EarlyExitWithRequirements(t *testing.T) {
	api := &fakeAPI{programs: programs(40, true, true)}
	c := newTestClient(api.server(t))

	got, err := c.FetchPrograms(context.Background(), testCreds, Requirements{Submission: true}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, api.count(), "stops after the first page holds enough qualifying programs")
}

func TestFetchPrograms_LimitWithoutRequirementsFetchesEverything(t *testing.T) {
	api := &fakeAPI{programs: programs(40, false, false)}
	c := newTestClient(api.server(t))

	got, err := c.FetchPrograms(context.Background(), testCreds, Requirements{}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 4, api.count())

	seen := make(map[string]bool)
	for _, h := range handles(got) {
		assert.False(t, seen[h], "duplicate %s", h)
		seen[h] = true
	}
}

func TestFetchPrograms_SelectionSize(t *testing.T) {
	tests := []struct {
		name       string
		qualifying int
		other      int
		req        Requirements
		limit      int
		want       int
	}{
		{"limit below qualifying", 8, 5, Requirements{Bounties: true}, 3, 3},
		{"limit above qualifying", 2, 5, Requirements{Bounties: true}, 6, 2},
		{"no limit", 8, 5, Requirements{Bounties: true}, 0, 8},
		{"no requirements ignores predicate", 8, 5, Requirements{}, 10, 10},
		{"no requirements no limit", 8, 5, Requirements{}, 0, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := append(programs(tt.qualifying, true, true), programs(tt.other, true, false)...)
			for i := range items {
				items[i]["attributes"].(map[string]any)["handle"] = fmt.Sprintf("h%d", i)
			}
			api := &fakeAPI{programs: items}
			got, err := newTestClient(api.server(t)).FetchPrograms(context.Background(), testCreds, tt.req, tt.limit)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			if tt.req.Active() {
				for _, p := range got {
					assert.True(t, tt.req.Match(p.Attributes))
				}
			}
		})
	}
}

func TestFetchPrograms_NoResults(t *testing.T) {
	api := &fakeAPI{}
	_, err := newTestClient(api.server(t)).FetchPrograms(context.Background(), testCreds, Requirements{}, 0)
	assert.ErrorIs(t, err, ErrNoPrograms)

	api = &fakeAPI{programs: programs(3, false, false)}
	_, err = newTestClient(api.server(t)).FetchPrograms(context.Background(), testCreds, Requirements{SafeHarbor: true}, 0)
	assert.ErrorIs(t, err, ErrNoQualifyingPrograms)
	assert.NotErrorIs(t, err, ErrNoPrograms)
}

func TestFetchPrograms_PageFailureAborts(t *testing.T) {
	api := &fakeAPI{programs: programs(25, false, false), failPage: map[int]int{2: http.StatusBadGateway}}
	got, err := newTestClient(api.server(t)).FetchPrograms(context.Background(), testCreds, Requirements{}, 0)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestFetchPrograms_Unauthorized(t *testing.T) {
	api := &fakeAPI{programs: programs(3, false, false)}
	c := newTestClient(api.server(t))
	_, err := c.FetchPrograms(context.Background(), model.Credentials{Username: "hacker", Token: "wrong"}, Requirements{}, 0)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetchPrograms_UndecodableBody(t *testing.T) {
	api := &fakeAPI{garbage: true}
	_, err := newTestClient(api.server(t)).FetchPrograms(context.Background(), testCreds, Requirements{}, 0)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchPrograms_TransportFailure(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)
	c := newTestClient(srv)
	srv.Close()
	_, err := c.FetchPrograms(context.Background(), testCreds, Requirements{}, 0)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchScope_Pages(t *testing.T) {
	var items []map[string]any
	for i := 0; i < 15; i++ {
		items = append(items, scope(strconv.Itoa(i), "URL", fmt.Sprintf("https://a%d.example.com", i)))
	}
	api := &fakeAPI{scopes: map[string][]map[string]any{"acme": items}}
	c := newTestClient(api.server(t))

	var counts []int
	got := c.FetchScope(context.Background(), testCreds, "acme", 0, func(n int) { counts = append(counts, n) })
	assert.Len(t, got, 15)
	assert.Equal(t, []int{10, 15}, counts)
	assert.Equal(t, "https://a0.example.com", got[0].Attributes.AssetIdentifier)
	assert.Equal(t, "critical", got[0].Attributes.MaxSeverity)
}

func TestFetchScope_NotFoundIsEmpty(t *testing.T) {
	api := &fakeAPI{}
	got := newTestClient(api.server(t)).FetchScope(context.Background(), testCreds, "vdp", 0, nil)
	assert.Empty(t, got)
}

func TestFetchScope_KeepsItemsBeforeFailure(t *testing.T) {
	var items []map[string]any
	for i := 0; i < 25; i++ {
		items = append(items, scope(strconv.Itoa(i), "WILDCARD", fmt.Sprintf("*.a%d.example.com", i)))
	}
	api := &fakeAPI{
		scopes:    map[string][]map[string]any{"acme": items},
		scopeFail: map[string]map[int]int{"acme": {2: http.StatusForbidden}},
	}
	got := newTestClient(api.server(t)).FetchScope(context.Background(), testCreds, "acme", 0, nil)
	assert.Len(t, got, 10)
}

func TestFetchScope_Limit(t *testing.T) {
	var items []map[string]any
	for i := 0; i < 12; i++ {
		items = append(items, scope(strconv.Itoa(i), "URL", fmt.Sprintf("https://a%d.example.com", i)))
	}
	api := &fakeAPI{scopes: map[string][]map[string]any{"acme": items}}
	c := newTestClient(api.server(t))

	assert.Len(t, c.FetchScope(context.Background(), testCreds, "acme", 4, nil), 4)
	assert.Len(t, c.FetchScope(context.Background(), testCreds, "acme", 50, nil), 12)
}

func TestVerifyCredentials(t *testing.T) {
	api := &fakeAPI{programs: programs(3, false, false)}
	c := newTestClient(api.server(t))

	require.NoError(t, c.VerifyCredentials(context.Background(), testCreds))
	assert.Contains(t, api.requests[0], "page%5Bsize%5D=1")
	assert.NotContains(t, api.requests[0], "page%5Bnumber%5D")

	err := c.VerifyCredentials(context.Background(), model.Credentials{Username: "x", Token: "y"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRequirements(t *testing.T) {
	attrs := model.ProgramAttributes{SubmissionState: "open", OffersBounties: true}
	assert.False(t, Requirements{}.Active())
	assert.True(t, Requirements{}.Match(attrs))
	assert.True(t, Requirements{Submission: true, Bounties: true}.Match(attrs))
	assert.False(t, Requirements{OpenScope: true}.Match(attrs))
	assert.False(t, Requirements{SafeHarbor: true}.Match(attrs))
	assert.False(t, Requirements{Submission: true}.Match(model.ProgramAttributes{SubmissionState: "paused"}))
}
