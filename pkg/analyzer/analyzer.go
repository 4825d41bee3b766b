// Package analyzer fetches a scope asset and rates it as a reflected or
// stored XSS target and as a DOM-based XSS target.
//
// The analysis is static: one GET, then pattern matching over the initial
// response headers and body. Nothing is executed and no payload is sent.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/httpclient"
	"github.com/waftester/bountyscout/pkg/iohelper"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/patterns"
	"github.com/waftester/bountyscout/pkg/probe"
)

// Analyzer fetches and evaluates assets.
type Analyzer struct {
	client *http.Client
	engine *patterns.Engine
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(a *Analyzer) { a.client = c }
}

// WithEngine replaces the pattern engine.
func WithEngine(e *patterns.Engine) Option {
	return func(a *Analyzer) { a.engine = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithClock overrides the time source used for TestedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New returns an Analyzer with a 15s timeout and a 5 redirect cap.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{now: time.Now}
	for _, o := range opts {
		o(a)
	}
	if a.client == nil {
		a.client = httpclient.New(httpclient.AssetConfig(duration.AnalysisTimeout, defaults.MaxRedirects, defaults.UABrowser))
	}
	if a.engine == nil {
		a.engine = patterns.Default()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Analyze fetches asset and evaluates it. It returns ErrSkipped for any
// final status other than 200 and a wrapped ErrFetch on transport errors.
func (a *Analyzer) Analyze(ctx context.Context, asset string) (*model.Analysis, error) {
	target := probe.NormalizeURL(asset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, target, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, target, err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		a.logger.Debug("analysis skipped",
			slog.String("url", target),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrSkipped, resp.StatusCode)
	}

	body := iohelper.ReadPage(resp.Body, a.logger)
	result := evaluate(a.engine, resp.StatusCode, resp.Header, body)
	result.TestedAt = a.now()

	a.logger.Info("analyzed",
		slog.String("url", target),
		slog.Bool("reflected_stored", result.GoodReflectedStored),
		slog.Int("reflected_stored_score", result.ReflectedStoredScore),
		slog.Bool("dom", result.GoodDOM),
		slog.Int("dom_score", result.DOMScore))
	return &result, nil
}
