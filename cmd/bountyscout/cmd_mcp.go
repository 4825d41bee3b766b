package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/waftester/bountyscout/pkg/cli"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/mcpserver"
)

// envMCPAddr is the HTTP listen address for the MCP server (same as --http).
const envMCPAddr = "BOUNTYSCOUT_MCP_HTTP_ADDR"

// runMCP starts the Model Context Protocol server over stdio, or over
// streamable HTTP when --http is given.
func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	httpAddr := fs.String("http", "", "HTTP address to listen on (e.g. :8081). Disables stdio.")
	setUsage(fs, "mcp [flags]",
		"Expose scans, progress and stored programs to MCP clients.\n"+
			"Stdio is the default transport; --http or "+envMCPAddr+" selects streamable HTTP.",
		toolName+" mcp",
		toolName+" mcp --http :8081",
		envMCPAddr+"=:8081 "+toolName+" mcp")
	parseFlags(fs)

	if *httpAddr == "" {
		*httpAddr = os.Getenv(envMCPAddr)
	}

	// stdout belongs to the stdio transport; the logger already writes to stderr.
	cfg, logger := common.setup()
	ctx, cancel := cli.SignalContext(duration.SignalGrace, logger)
	defer cancel()

	p, err := newPipeline(ctx, cfg, &common, logger)
	if err != nil {
		exitWithError("startup: %v", err)
	}
	srv := mcpserver.New(mcpserver.Config{
		Scanner: p.orch,
		Store:   p.store,
		Logger:  logger,
	})
	p.dispatcher.RegisterHook(srv.Hook())

	if *httpAddr != "" {
		err = serveMCPHTTP(ctx, *httpAddr, srv.HTTPHandler(), logger)
	} else {
		err = srv.RunStdio(ctx)
	}

	p.orch.Wait()
	if cerr := p.Close(); cerr != nil {
		logger.Warn("shutdown", slog.String("error", cerr.Error()))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		exitWithError("mcp: %v", err)
	}
}

// serveMCPHTTP runs the streamable transport until ctx ends. There is no
// write timeout because event streams stay open for the whole session.
func serveMCPHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: duration.ServerRead,
		ReadTimeout:       duration.ServerRead,
		IdleTimeout:       duration.ServerRead * 2,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), duration.ServerShutdown)
		defer shutdownCancel()
		logger.Info("mcp server shutting down")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp shutdown", slog.String("error", err.Error()))
		}
	}()

	logger.Info("mcp server listening", slog.String("addr", addr), slog.String("transport", "http"))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
