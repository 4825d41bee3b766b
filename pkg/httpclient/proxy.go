package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// ParseProxy validates a proxy URL. Accepted schemes are http, https,
// socks5 and socks5h (hostnames resolved by the proxy).
func ParseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidProxy, raw)
	}
	return u, nil
}

// applyProxy routes transport through the proxy at raw. HTTP proxies use
// transport.Proxy; SOCKS proxies replace DialContext.
func applyProxy(transport *http.Transport, raw string, direct *net.Dialer) error {
	u, err := ParseProxy(raw)
	if err != nil {
		return err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" || scheme == "https" {
		transport.Proxy = http.ProxyURL(u)
		return nil
	}

	// x/net/proxy only registers "socks5"; remote DNS is its default
	// behaviour because it forwards hostnames unresolved.
	socksURL := *u
	socksURL.Scheme = "socks5"
	d, err := proxy.FromURL(&socksURL, direct)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return fmt.Errorf("%w: dialer for %s has no context support", ErrInvalidProxy, u.Redacted())
	}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return cd.DialContext(ctx, network, addr)
	}
	return nil
}
