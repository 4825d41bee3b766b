package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/waftester/bountyscout/pkg/analyzer"
	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/config"
	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/httpclient"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
	"github.com/waftester/bountyscout/pkg/output/hooks"
	"github.com/waftester/bountyscout/pkg/probe"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
)

// pipeline is the wired scan stack shared by serve, scan and mcp.
type pipeline struct {
	store      *store.GormStore
	catalog    *catalog.Client
	dispatcher *dispatcher.Dispatcher
	orch       *scan.Orchestrator
	prometheus *hooks.PrometheusHook
	logger     *slog.Logger
	closers    []func() error
}

// openStore opens the configured database.
func openStore(cfg *config.Config, flags *commonFlags, logger *slog.Logger) (*store.GormStore, error) {
	return store.Open(cfg.Database,
		store.WithFresh(cfg.FreshDatabase),
		store.WithLogger(logger),
		store.WithSQLDebug(flags.sqlDebug))
}

func newCatalog(cfg *config.Config, logger *slog.Logger) *catalog.Client {
	opts := []catalog.Option{catalog.WithBaseURL(cfg.APIBase), catalog.WithLogger(logger)}
	if cfg.Proxy != "" {
		hc := httpclient.DefaultConfig()
		hc.UserAgent = defaults.UserAgent("catalog")
		hc.MaxRedirects = defaults.MaxRedirects
		hc.Proxy = cfg.Proxy
		opts = append(opts, catalog.WithHTTPClient(httpclient.New(hc)))
	}
	return catalog.New(opts...)
}

// assetClient returns a proxied client for probing and analysis, or nil
// when no proxy is configured so each component keeps its own default.
func assetClient(cfg *config.Config, timeout time.Duration) *http.Client {
	if cfg.Proxy == "" {
		return nil
	}
	hc := httpclient.AssetConfig(timeout, defaults.MaxRedirects, defaults.UABrowser)
	hc.Proxy = cfg.Proxy
	return httpclient.New(hc)
}

// newPipeline opens the store and wires catalog, prober, analyzer and the
// event dispatcher. Telemetry hooks come from cfg; extra hooks are added
// after them. Scans run under ctx.
func newPipeline(ctx context.Context, cfg *config.Config, flags *commonFlags, logger *slog.Logger, extra ...dispatcher.Hook) (*pipeline, error) {
	st, err := openStore(cfg, flags, logger)
	if err != nil {
		return nil, err
	}
	p := &pipeline{
		store:      st,
		catalog:    newCatalog(cfg, logger),
		dispatcher: dispatcher.New(dispatcher.Config{Logger: logger}),
		logger:     logger,
	}
	p.closers = append(p.closers, st.Close)

	if err := p.registerTelemetry(cfg); err != nil {
		_ = p.Close()
		return nil, err
	}
	for _, h := range extra {
		p.dispatcher.RegisterHook(h)
	}

	probeOpts := []probe.Option{probe.WithLogger(logger)}
	analyzerOpts := []analyzer.Option{analyzer.WithLogger(logger)}
	if c := assetClient(cfg, duration.ProbeTimeout); c != nil {
		probeOpts = append(probeOpts, probe.WithClient(c))
	}
	if c := assetClient(cfg, duration.AnalysisTimeout); c != nil {
		analyzerOpts = append(analyzerOpts, analyzer.WithClient(c))
	}

	p.orch = scan.New(p.catalog, st,
		probe.New(probeOpts...),
		analyzer.New(analyzerOpts...),
		scan.WithDispatcher(p.dispatcher),
		scan.WithLogger(logger),
		scan.WithProgramDelay(cfg.Scan.ProgramDelay),
		scan.WithAssetDelay(cfg.Scan.AssetDelay),
		scan.WithBaseContext(ctx),
	)
	return p, nil
}

func (p *pipeline) registerTelemetry(cfg *config.Config) error {
	p.dispatcher.RegisterHook(hooks.NewLogHook(p.logger))

	prom, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{Namespace: defaults.ToolName, Logger: p.logger})
	if err != nil {
		return err
	}
	p.prometheus = prom
	p.dispatcher.RegisterHook(prom)

	if cfg.Telemetry.OTelEndpoint != "" {
		otel, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint:        cfg.Telemetry.OTelEndpoint,
			ServiceName:     defaults.ToolName,
			Insecure:        cfg.Telemetry.OTelInsecure,
			ShutdownTimeout: duration.TelemetryShutdown,
		})
		if err != nil {
			return err
		}
		p.dispatcher.RegisterHook(otel)
		p.closers = append(p.closers, otel.Close)
		p.logger.Info("tracing enabled", slog.String("endpoint", otel.Endpoint()))
	}

	if cfg.Webhook.URL != "" {
		types := make([]events.EventType, 0, len(cfg.Webhook.Events))
		for _, e := range cfg.Webhook.Events {
			types = append(types, events.EventType(e))
		}
		wh := hooks.NewWebhookHook(cfg.Webhook.URL, hooks.WebhookOptions{
			Headers: cfg.Webhook.Headers,
			Events:  types,
			Logger:  p.logger,
		})
		p.dispatcher.RegisterHook(wh)
		p.closers = append(p.closers, wh.Close)
		p.logger.Info("webhook enabled", slog.String("url", cfg.Webhook.URL))
	}
	return nil
}

// Close flushes the dispatcher, then closes telemetry and the store.
func (p *pipeline) Close() error {
	errs := []error{p.dispatcher.Close()}
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}
