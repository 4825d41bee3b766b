// Package httpclient provides the shared HTTP client factory used by the
// catalog fetcher, the asset prober and the analyzer.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/waftester/bountyscout/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout, redirects included.
	Timeout time.Duration

	// MaxRedirects caps followed redirects. Zero means redirects are not
	// followed and the 3xx response is returned as is.
	MaxRedirects int

	// UserAgent is set on every request that does not carry one.
	UserAgent string

	// InsecureSkipVerify skips TLS verification. Scope assets frequently
	// serve self-signed or expired certificates.
	InsecureSkipVerify bool

	// Proxy is an optional http, https, socks5 or socks5h proxy URL.
	Proxy string

	// MaxIdleConns is the idle pool size across hosts (default 100).
	MaxIdleConns int

	// MaxConnsPerHost caps connections per host (default 10).
	MaxConnsPerHost int
}

// DefaultConfig returns the settings used for catalog API calls.
func DefaultConfig() Config {
	return Config{
		Timeout:         duration.CatalogTimeout,
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
	}
}

// AssetConfig returns settings for fetching scope assets: the given
// timeout, redirectCap redirects and relaxed TLS.
func AssetConfig(timeout time.Duration, redirectCap int, userAgent string) Config {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	cfg.MaxRedirects = redirectCap
	cfg.UserAgent = userAgent
	cfg.InsecureSkipVerify = true
	return cfg
}

// New creates an HTTP client from cfg. Zero values fall back to defaults.
// A malformed Proxy is ignored; check it first with ParseProxy.
func New(cfg Config) *http.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = duration.CatalogTimeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 10
	}

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       duration.IdleConn,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   duration.TLSHandshake,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // scope assets often have broken certs
		},
	}

	if cfg.Proxy != "" {
		_ = applyProxy(transport, cfg.Proxy, dialer)
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: cfg.UserAgent}
	}

	return &http.Client{
		Transport:     rt,
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicy(cfg.MaxRedirects),
	}
}

// redirectPolicy follows at most max redirects and then fails the request.
// max == 0 returns the first response untouched.
func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if max <= 0 {
			return http.ErrUseLastResponse
		}
		if len(via) > max {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, max)
		}
		return nil
	}
}
