package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/waftester/bountyscout/pkg/report"
	"github.com/waftester/bountyscout/pkg/store"
	"github.com/waftester/bountyscout/pkg/ui"
)

// runExport writes a report of every stored program.
func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	formatFlag := fs.String("format", "csv", "report format: csv, pdf or text")
	out := fs.String("o", "", "output file (default: "+report.BaseName+".<ext>, '-' for stdout)")
	templatePath := fs.String("template", "", "text/template file for the text format (sprig functions available)")
	setUsage(fs, "export [flags]",
		"Write a report of every stored program with its scope targets, probe results and verdicts.",
		toolName+" export",
		toolName+" export -format pdf -o scan.pdf",
		toolName+" export -format text -template summary.tmpl -o -")
	parseFlags(fs)

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		exitWithError("%v", err)
	}
	opts := report.Options{}
	if *templatePath != "" {
		if format != report.FormatText {
			exitWithError("-template only applies to -format text")
		}
		data, err := os.ReadFile(*templatePath)
		if err != nil {
			exitWithError("template: %v", err)
		}
		opts.TemplateText = string(data)
	}

	cfg, logger := common.setup()
	st, err := openStore(cfg, &common, logger)
	if err != nil {
		exitWithError("database: %v", err)
	}
	defer st.Close()

	programs, err := st.ListPrograms(context.Background(), store.Query{})
	if err != nil {
		exitWithError("listing programs: %v", err)
	}

	path := *out
	if path == "" {
		path = format.Filename()
	}
	if path == "-" {
		if err := report.Write(os.Stdout, format, programs, opts); err != nil {
			exitWithError("rendering report: %v", err)
		}
		return
	}
	if err := writeReportFile(path, func(w io.Writer) error {
		return report.Write(w, format, programs, opts)
	}); err != nil {
		exitWithError("writing %s: %v", path, err)
	}
	ui.PrintSuccess(fmt.Sprintf("%s report with %d programs written to %s", format, len(programs), path))
}

// writeReportFile renders into path, removing the file when rendering
// fails.
func writeReportFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
