package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/httpclient"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path ", "https://example.com/path"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"*.example.com", "https://*.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestHasAuthIndicators(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"label word", `<label for="p">Password</label>`, true},
		{"inside tag", `<input type="password" name="pw">`, true},
		{"quoted", `var mode = 'sign-in';`, true},
		{"whole word text", `<p>Please log in to continue</p>`, true},
		{"embedded token only", `<p>xpasswordx</p>`, false},
		{"no vocabulary", `<h1>Welcome</h1>`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAuthIndicators(tt.body))
		})
	}
}

func TestProbeRecordsStatusAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaults.UABrowser, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `<form><label>Username</label></form>`)
	}))
	defer srv.Close()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := New(WithLogger(quietLogger()), WithClock(func() time.Time { return fixed }))
	res := p.Probe(context.Background(), srv.URL)

	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusOK, *res.StatusCode)
	assert.True(t, res.HasAuthIndicators)
	assert.True(t, strings.HasPrefix(res.BodyHash, "mmh3:"))
	assert.Equal(t, fixed, res.TestedAt)
}

func TestProbeAcceptsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	res := New(WithLogger(quietLogger())).Probe(context.Background(), srv.URL)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusNotFound, *res.StatusCode)
	assert.False(t, res.HasAuthIndicators)
}

func TestProbeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := New(WithLogger(quietLogger())).Probe(context.Background(), url)
	assert.Nil(t, res.StatusCode)
	assert.False(t, res.HasAuthIndicators)
	assert.Empty(t, res.BodyHash)
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := httpclient.New(httpclient.AssetConfig(50*time.Millisecond, defaults.MaxRedirects, defaults.UABrowser))
	res := New(WithClient(client), WithLogger(quietLogger())).Probe(context.Background(), srv.URL)
	assert.Nil(t, res.StatusCode)
}

func TestProbeFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res := New(WithLogger(quietLogger())).Probe(context.Background(), srv.URL+"/start")
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusTeapot, *res.StatusCode)
}

func TestBodyHash(t *testing.T) {
	assert.Empty(t, BodyHash(nil))
	a := BodyHash([]byte("<html>same</html>"))
	assert.Equal(t, a, BodyHash([]byte("<html>same</html>")))
	assert.NotEqual(t, a, BodyHash([]byte("<html>other</html>")))
}
