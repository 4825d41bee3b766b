package main

import (
	"flag"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/waftester/bountyscout/pkg/api"
	"github.com/waftester/bountyscout/pkg/cli"
	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/ui"
)

// runServe starts the HTTP API with WebSocket progress and metrics.
func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	port := fs.Int("port", 0, "listen port (overrides config and PORT)")
	setUsage(fs, "serve [flags]",
		"Serve the scan API, the progress WebSocket and Prometheus metrics.",
		toolName+" serve",
		toolName+" serve -port 8080 -db ./data/scan.db",
		"FRESH_DATABASE=true "+toolName+" serve")
	parseFlags(fs)

	cfg, logger := common.setup()
	if *port != 0 {
		cfg.Port = *port
		if err := cfg.Validate(); err != nil {
			exitWithError("config: %v", err)
		}
	}

	ctx, cancel := cli.SignalContext(duration.SignalGrace, logger)
	defer cancel()

	var p *pipeline
	hub := api.NewHub(func() model.Progress { return p.orch.Progress() }, logger)
	p, err := newPipeline(ctx, cfg, &common, logger, hub)
	if err != nil {
		exitWithError("startup: %v", err)
	}

	srv := api.New(p.store, p.orch, p.catalog,
		api.WithLogger(logger),
		api.WithHub(hub),
		api.WithMetrics(p.prometheus.Handler()),
		api.WithMetricsPath(cfg.Telemetry.MetricsPath),
	)

	ui.PrintBanner()
	ui.PrintSection("Server")
	ui.PrintConfigLine("Listen", "http://localhost"+cfg.Addr())
	ui.PrintConfigLine("Database", cfg.Database)
	ui.PrintConfigLine("Catalog API", cfg.APIBase)
	ui.PrintConfigLine("Progress", defaults.WebSocketPath)
	ui.PrintConfigLine("Metrics", cfg.Telemetry.MetricsPath)
	if n, err := p.store.CountPrograms(ctx); err == nil {
		ui.PrintConfigLine("Stored programs", strconv.FormatInt(n, 10))
	}

	serveErr := srv.ListenAndServe(ctx, cfg.Addr())

	_ = hub.Close()
	p.orch.Wait()
	if err := p.Close(); err != nil {
		logger.Warn("shutdown", slog.String("error", err.Error()))
	}
	if serveErr != nil {
		exitWithError("server: %v", serveErr)
	}
	ui.PrintSuccess(fmt.Sprintf("%s stopped", toolName))
}
