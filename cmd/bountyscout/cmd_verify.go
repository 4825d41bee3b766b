package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/waftester/bountyscout/pkg/config"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/ui"
)

// runVerify checks credentials against the catalog API and saves them
// for later scans.
func runVerify() {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	username := fs.String("username", "", "HackerOne username (default: config, "+config.EnvUsername+")")
	token := fs.String("token", "", "HackerOne API token (default: config, "+config.EnvToken+")")
	noSave := fs.Bool("no-save", false, "only check, do not store the credentials")
	setUsage(fs, "verify [flags]",
		"Request one catalog page with the given credentials and save them when accepted.",
		toolName+" verify -username alice -token $TOKEN",
		config.EnvUsername+"=alice "+config.EnvToken+"=... "+toolName+" verify")
	parseFlags(fs)

	cfg, logger := common.setup()
	creds := cfg.CatalogCredentials()
	if *username != "" {
		creds.Username = *username
	}
	if *token != "" {
		creds.Token = *token
	}
	if !creds.Valid() {
		exitWithError("Username and token are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration.CatalogTimeout+5*time.Second)
	defer cancel()

	if err := newCatalog(cfg, logger).VerifyCredentials(ctx, creds); err != nil {
		exitWithError("Invalid credentials: %v", err)
	}
	ui.PrintSuccess(fmt.Sprintf("credentials for %s accepted", creds.Username))
	if *noSave {
		return
	}

	st, err := openStore(cfg, &common, logger)
	if err != nil {
		exitWithError("database: %v", err)
	}
	defer st.Close()
	if err := st.SaveCredentials(ctx, creds); err != nil {
		exitWithError("saving credentials: %v", err)
	}
	ui.PrintInfo("saved to " + cfg.Database)
}
