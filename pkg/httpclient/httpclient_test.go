package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ZeroConfigUsesDefaults(t *testing.T) {
	client := New(Config{})
	require.NotNil(t, client)
	assert.Equal(t, DefaultConfig().Timeout, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok, "no user agent means no middleware")
	assert.Equal(t, 100, transport.MaxIdleConns)
	assert.False(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestAssetConfig(t *testing.T) {
	cfg := AssetConfig(10*time.Second, 5, "ua")
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRedirects)
	assert.True(t, cfg.InsecureSkipVerify)
}

func TestNew_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := New(Config{UserAgent: "bountyscout-test"})
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "bountyscout-test", got)
}

func TestNew_KeepsExplicitUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := New(Config{UserAgent: "default"})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "custom", got)
}

func redirectChain(t *testing.T, hops int) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/%d", &n)
		if n < hops {
			http.Redirect(w, r, fmt.Sprintf("%s/%d", srv.URL, n+1), http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRedirectPolicy_FollowsUpToCap(t *testing.T) {
	srv := redirectChain(t, 5)
	client := New(Config{MaxRedirects: 5})
	resp, err := client.Get(srv.URL + "/0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRedirectPolicy_FailsPastCap(t *testing.T) {
	srv := redirectChain(t, 6)
	client := New(Config{MaxRedirects: 5})
	_, err := client.Get(srv.URL + "/0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyRedirects))
}

func TestRedirectPolicy_ZeroReturnsRedirect(t *testing.T) {
	srv := redirectChain(t, 1)
	client := New(Config{})
	resp, err := client.Get(srv.URL + "/0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("connection refused")))
}
