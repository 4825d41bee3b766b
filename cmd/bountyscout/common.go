package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/waftester/bountyscout/pkg/cli"
	"github.com/waftester/bountyscout/pkg/config"
	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/ui"
)

// commonFlags are registered on every subcommand.
type commonFlags struct {
	configPath string
	database   string
	apiBase    string
	proxy      string
	verbose    bool
	jsonLogs   bool
	noColor    bool
	silent     bool
	sqlDebug   bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file")
	fs.StringVar(&c.database, "db", "", "sqlite database path (overrides config and "+config.EnvDatabase+")")
	fs.StringVar(&c.apiBase, "api-base", "", "catalog API root (overrides config and "+config.EnvAPIBase+")")
	fs.StringVar(&c.proxy, "proxy", "", "http(s) or socks5(h) proxy for catalog and asset traffic (overrides config and "+config.EnvProxy+")")
	fs.BoolVar(&c.verbose, "verbose", false, "debug logging")
	fs.BoolVar(&c.jsonLogs, "json-logs", false, "JSON log records on stderr")
	fs.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&c.silent, "silent", false, "suppress everything but errors")
	fs.BoolVar(&c.sqlDebug, "sql-debug", false, "log every SQL statement")
}

// setup loads the configuration, applies the common flags and builds the
// logger. Config errors are fatal.
func (c *commonFlags) setup() (*config.Config, *slog.Logger) {
	ui.SetNoColor(c.noColor || os.Getenv("NO_COLOR") != "")
	ui.SetSilent(c.silent)

	logger := cli.NewLogger(os.Stderr, cli.LogOptions{Verbose: c.verbose, JSON: c.jsonLogs})
	slog.SetDefault(logger)

	cfg, err := config.Load(c.configPath)
	if err != nil {
		exitWithError("config: %v", err)
	}
	if c.database != "" {
		cfg.Database = c.database
	}
	if c.apiBase != "" {
		cfg.APIBase = c.apiBase
	}
	if c.proxy != "" {
		cfg.Proxy = c.proxy
	}
	if err := cfg.Validate(); err != nil {
		exitWithError("config: %v", err)
	}
	return cfg, logger
}

// setUsage installs a usage function in the same layout for every
// subcommand.
func setUsage(fs *flag.FlagSet, synopsis, description string, examples ...string) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", toolName, synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		if len(examples) > 0 {
			fmt.Fprintf(os.Stderr, "Examples:\n")
			for _, e := range examples {
				fmt.Fprintf(os.Stderr, "  %s\n", e)
			}
			fmt.Fprintln(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
}

func parseFlags(fs *flag.FlagSet) {
	if err := fs.Parse(os.Args[2:]); err != nil {
		exitWithError("%v", err)
	}
}

// exitWithError prints a formatted error message and exits with
// defaults.ExitError.
func exitWithError(format string, args ...any) {
	exitWithCode(defaults.ExitError, format, args...)
}

func exitWithCode(code int, format string, args ...any) {
	ui.PrintError(fmt.Sprintf(format, args...))
	os.Exit(code)
}
