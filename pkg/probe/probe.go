// Package probe performs the reachability check for a scope asset: one
// GET, the final status code, and a login/auth page heuristic.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/httpclient"
	"github.com/waftester/bountyscout/pkg/iohelper"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/patterns"
	"github.com/waftester/bountyscout/pkg/regexcache"
)

// Prober fetches assets. The zero value is not usable; call New.
type Prober struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Prober.
type Option func(*Prober)

// WithClient replaces the HTTP client. The client should accept every
// status and cap redirects.
func WithClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// WithClock overrides the time source used for TestedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) { p.now = now }
}

// New returns a Prober with a 10s timeout, a 5 redirect cap and a
// browser User-Agent.
func New(opts ...Option) *Prober {
	p := &Prober{now: time.Now}
	for _, o := range opts {
		o(p)
	}
	if p.client == nil {
		p.client = httpclient.New(httpclient.AssetConfig(duration.ProbeTimeout, defaults.MaxRedirects, defaults.UABrowser))
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// NormalizeURL trims asset and prefixes https:// unless it already has an
// http or https scheme.
func NormalizeURL(asset string) string {
	u := strings.TrimSpace(asset)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// Probe requests the asset once. Network and timeout failures yield a
// result with a nil StatusCode; they are logged, never returned.
func (p *Prober) Probe(ctx context.Context, asset string) model.ProbeResult {
	target := NormalizeURL(asset)
	result := model.ProbeResult{TestedAt: p.now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		p.logger.Warn("probe request invalid",
			slog.String("url", target),
			slog.String("error", err.Error()))
		return result
	}

	resp, err := p.client.Do(req)
	if err != nil {
		attrs := []any{slog.String("url", target), slog.String("error", err.Error())}
		if httpclient.IsTimeout(err) {
			attrs = append(attrs, slog.Bool("timeout", true))
		}
		p.logger.Warn("probe failed", attrs...)
		return result
	}
	defer iohelper.DrainAndClose(resp.Body)

	body := iohelper.ReadPage(resp.Body, p.logger)
	status := resp.StatusCode
	result.StatusCode = &status
	result.HasAuthIndicators = HasAuthIndicators(string(body))
	result.BodyHash = BodyHash(body)

	p.logger.Debug("probed",
		slog.String("url", target),
		slog.Int("status", status),
		slog.Bool("auth", result.HasAuthIndicators),
		slog.String("body_hash", result.BodyHash))
	return result
}

// HasAuthIndicators reports whether body looks like an authentication
// page. A vocabulary term counts only when it also appears inside a tag,
// inside a quoted string, or as a whole word.
func HasAuthIndicators(body string) bool {
	lower := strings.ToLower(body)
	for _, indicator := range patterns.AuthIndicators {
		if !strings.Contains(lower, indicator) {
			continue
		}
		quoted := regexp.QuoteMeta(indicator)
		for _, tmpl := range patterns.IndicatorContexts {
			if regexcache.MustGetFold(fmt.Sprintf(tmpl, quoted)).MatchString(body) {
				return true
			}
		}
	}
	return false
}

// BodyHash fingerprints a response body so identical pages served by
// different assets can be spotted in the results.
func BodyHash(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return fmt.Sprintf("mmh3:%d", int32(murmur3.Sum32(body)))
}
