package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/cli"
	"github.com/waftester/bountyscout/pkg/config"
	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/hooks"
	"github.com/waftester/bountyscout/pkg/output/writers"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
	"github.com/waftester/bountyscout/pkg/ui"
)

// runScan runs one scan in the foreground and prints results as they
// arrive.
func runScan() {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	username := fs.String("username", "", "HackerOne username (default: config, "+config.EnvUsername+", saved credentials)")
	token := fs.String("token", "", "HackerOne API token (default: config, "+config.EnvToken+", saved credentials)")
	limit := fs.Int("limit", -1, "randomly sample this many programs (0 = all, default from config)")
	scopeLimit := fs.Int("scope-limit", -1, "randomly sample this many scope targets per program (0 = all, default from config)")
	requireSubmission := fs.Bool("require-submission", false, "only programs open for submissions")
	requireBounties := fs.Bool("require-bounties", false, "only programs that pay bounties")
	requireOpenScope := fs.Bool("require-open-scope", false, "only open-scope programs")
	requireSafeHarbor := fs.Bool("require-safe-harbor", false, "only programs with gold-standard safe harbor")
	jsonl := fs.Bool("jsonl", false, "write events as JSON lines to stdout (default when stdout is not a terminal)")
	outFile := fs.String("o", "", "also write JSON lines to this file")
	onlyGood := fs.Bool("only-good", false, "print only targets that met a verdict")
	withProgress := fs.Bool("progress-events", false, "include progress snapshots in JSON lines")
	setUsage(fs, "scan [flags]",
		"Fetch the program catalog, store every program and scope target, then probe and score each URL asset.",
		toolName+" scan -limit 5 -scope-limit 3",
		toolName+" scan -require-bounties -require-safe-harbor -only-good",
		toolName+" scan -jsonl | jq 'select(.type==\"target\")'")
	parseFlags(fs)

	cfg, logger := common.setup()
	ctx, cancel := cli.SignalContext(duration.SignalGrace, logger)
	defer cancel()

	var extra []dispatcher.Hook
	var eventWriters []dispatcher.Writer
	jsonlOpts := writers.JSONLOptions{OmitProgress: !*withProgress, OnlyGood: *onlyGood}
	if *jsonl || !ui.StdoutIsTerminal() {
		eventWriters = append(eventWriters, writers.NewJSONLWriter(os.Stdout, jsonlOpts))
	} else {
		extra = append(extra, hooks.NewConsoleHook(os.Stdout, *onlyGood))
	}
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			exitWithError("output file: %v", err)
		}
		eventWriters = append(eventWriters, writers.NewJSONLWriter(f, jsonlOpts))
	}

	p, err := newPipeline(ctx, cfg, &common, logger, extra...)
	if err != nil {
		exitWithError("startup: %v", err)
	}
	for _, w := range eventWriters {
		p.dispatcher.RegisterWriter(w)
	}

	req := scan.Request{
		Credentials: resolveCredentials(ctx, *username, *token, cfg, p.store),
		Limit:       pick(*limit, cfg.Scan.Limit),
		ScopeLimit:  pick(*scopeLimit, cfg.Scan.ScopeLimit),
		Requirements: mergeRequirements(cfg.CatalogRequirements(), catalog.Requirements{
			Submission: *requireSubmission,
			Bounties:   *requireBounties,
			OpenScope:  *requireOpenScope,
			SafeHarbor: *requireSafeHarbor,
		}),
	}

	ui.PrintBanner()
	ui.PrintSection("Scan")
	ui.PrintConfigLine("Catalog API", cfg.APIBase)
	ui.PrintConfigLine("Database", cfg.Database)
	ui.PrintConfigLine("Program sample", sampleLabel(req.Limit))
	ui.PrintConfigLine("Scope sample", sampleLabel(req.ScopeLimit))

	total, err := p.orch.Start(ctx, req)
	if err != nil {
		_ = p.Close()
		exitWithCode(startExitCode(err), "%s", startError(err))
	}
	ui.PrintInfo(fmt.Sprintf("%d programs selected", total))

	p.orch.Wait()
	final := p.orch.Progress()
	if err := p.Close(); err != nil {
		logger.Warn("shutdown", slog.String("error", err.Error()))
	}

	fmt.Fprintln(os.Stderr, ui.FormatProgress(final, ui.TerminalWidth(80)/3))
	os.Exit(scanExitCode(ctx, final))
}

// scanExitCode maps the final snapshot to the process exit code.
func scanExitCode(ctx context.Context, final model.Progress) int {
	switch {
	case ctx.Err() != nil:
		return defaults.ExitInterrupted
	case final.Status != model.StatusComplete:
		return defaults.ExitError
	default:
		return defaults.ExitOK
	}
}

func startExitCode(err error) int {
	switch {
	case errors.Is(err, scan.ErrMissingCredentials):
		return defaults.ExitUsage
	case errors.Is(err, catalog.ErrNoQualifyingPrograms), errors.Is(err, catalog.ErrNoPrograms):
		return defaults.ExitNoResults
	default:
		return defaults.ExitError
	}
}

// resolveCredentials prefers flags, then config and environment, then the
// credentials saved by a previous verify.
func resolveCredentials(ctx context.Context, username, token string, cfg *config.Config, st *store.GormStore) model.Credentials {
	creds := cfg.CatalogCredentials()
	if username != "" {
		creds.Username = username
	}
	if token != "" {
		creds.Token = token
	}
	if creds.Valid() {
		return creds
	}
	if saved, err := st.Credentials(ctx); err == nil {
		return saved
	}
	return creds
}

// pick returns v unless the flag was left at -1.
func pick(v, fallback int) int {
	if v < 0 {
		return fallback
	}
	return v
}

// mergeRequirements turns on every requirement set in either a or b.
func mergeRequirements(a, b catalog.Requirements) catalog.Requirements {
	return catalog.Requirements{
		Submission: a.Submission || b.Submission,
		Bounties:   a.Bounties || b.Bounties,
		OpenScope:  a.OpenScope || b.OpenScope,
		SafeHarbor: a.SafeHarbor || b.SafeHarbor,
	}
}

func sampleLabel(n int) string {
	if n == 0 {
		return "all"
	}
	return strconv.Itoa(n)
}

// startError renders a Start failure the way the API reports it.
func startError(err error) string {
	switch {
	case errors.Is(err, scan.ErrMissingCredentials):
		return "Username and token are required (use -username/-token, " + config.EnvUsername + "/" + config.EnvToken + " or run verify)"
	case errors.Is(err, catalog.ErrNoQualifyingPrograms):
		return "No programs found that meet the specified requirements"
	case errors.Is(err, catalog.ErrNoPrograms):
		return "No programs found"
	case errors.Is(err, catalog.ErrUnauthorized):
		return "Invalid credentials: " + err.Error()
	default:
		return "Failed to fetch programs from API: " + err.Error()
	}
}
