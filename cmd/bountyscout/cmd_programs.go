package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/store"
	"github.com/waftester/bountyscout/pkg/strutil"
	"github.com/waftester/bountyscout/pkg/ui"
)

// runPrograms lists stored programs as a table or JSON.
func runPrograms() {
	fs := flag.NewFlagSet("programs", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	search := fs.String("search", "", "substring of handle or name")
	filter := fs.String("filter", "", `JSON column filter, e.g. '{"offers_bounties":true,"min_bounty":500}'`)
	bounties := fs.Bool("bounties", false, "only programs that pay bounties")
	asJSON := fs.Bool("json", false, "print the full program records as JSON")
	setUsage(fs, "programs [flags]",
		"List programs stored by earlier scans, ordered by name.",
		toolName+" programs",
		toolName+" programs -search shop -bounties",
		toolName+" programs -json | jq '.[].handle'")
	parseFlags(fs)

	cfg, logger := common.setup()
	st, err := openStore(cfg, &common, logger)
	if err != nil {
		exitWithError("database: %v", err)
	}
	defer st.Close()

	q := store.Query{Search: *search, Filter: store.ParseFilter(*filter)}
	if *bounties {
		if q.Filter == nil {
			q.Filter = map[string]any{}
		}
		q.Filter["offers_bounties"] = true
	}
	programs, err := st.ListPrograms(context.Background(), q)
	if err != nil {
		exitWithError("listing programs: %v", err)
	}

	if *asJSON {
		data, err := jsonutil.MarshalIndent(programs, "  ")
		if err != nil {
			exitWithError("encoding: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	if len(programs) == 0 {
		ui.PrintWarning("no stored programs match; run '" + toolName + " scan' first")
		return
	}
	if err := renderProgramTable(os.Stdout, programs); err != nil {
		exitWithError("rendering table: %v", err)
	}
	ui.PrintInfo(fmt.Sprintf("%d programs", len(programs)))
}

// programRow is one table line.
type programRow struct {
	handle, name, state           string
	bounties, safeHarbor          bool
	targets, probed, goodRS, good int
}

func toRow(p store.ProgramView) programRow {
	r := programRow{
		handle:     p.Handle,
		name:       p.DisplayName(),
		state:      p.State,
		bounties:   p.OffersBounties,
		safeHarbor: p.GoldStandardSafeHarbor,
		targets:    len(p.ScopeTargets),
	}
	for _, t := range p.ScopeTargets {
		if t.TestResult != nil {
			r.probed++
		}
		if a := t.XSSAnalysis; a != nil {
			if a.GoodReflectedStored {
				r.goodRS++
			}
			if a.GoodDOM {
				r.good++
			}
		}
	}
	return r
}

func renderProgramTable(w io.Writer, programs []store.ProgramView) error {
	table := tablewriter.NewWriter(w)
	table.Header("Handle", "Name", "State", "Bounties", "Safe Harbor", "Targets", "Probed", "Reflected/Stored", "DOM")
	for _, p := range programs {
		r := toRow(p)
		if err := table.Append([]string{
			r.handle,
			strutil.Ellipsis(r.name, 32),
			ui.Title(r.state),
			yesNo(r.bounties),
			yesNo(r.safeHarbor),
			strconv.Itoa(r.targets),
			strconv.Itoa(r.probed),
			strconv.Itoa(r.goodRS),
			strconv.Itoa(r.good),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
