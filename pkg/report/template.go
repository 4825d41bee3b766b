package report

import (
	"fmt"
	"io"
	"strconv"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/waftester/bountyscout/pkg/store"
)

// summaryTemplate is the built-in text report.
const summaryTemplate = `{{ .Title }}
Generated: {{ .Generated | date "2006-01-02 15:04:05" }}
Programs: {{ .Totals.Programs }}  Targets: {{ .Totals.Targets }}  Probed: {{ .Totals.Probed }}  Good XSS targets: {{ .Totals.Good }}
{{- range .Programs }}

== {{ .DisplayName }} ({{ .Handle }}) ==
State: {{ .State | default "N/A" }}  Bounties: {{ yesNo .OffersBounties }}  Open scope: {{ yesNo .OpenScope }}  Safe harbor: {{ yesNo .GoldStandardSafeHarbor }}
{{- if not .ScopeTargets }}
  no scope targets
{{- end }}
{{- range .ScopeTargets }}
  - [{{ .AssetType | default "Unknown" }}] {{ .Target }}
    {{- with .TestResult }} status={{ status .StatusCode }}{{ if .HasAuthIndicators }} auth{{ end }}{{ end }}
  {{- with .XSSAnalysis }}
      reflected/stored {{ .ReflectedStoredScore }}{{ if .GoodReflectedStored }} GOOD{{ end }}, dom {{ .DOMScore }}{{ if .GoodDOM }} GOOD{{ end }}
      {{- if .Frameworks }} [{{ join ", " .Frameworks }}]{{ end }}
  {{- end }}
{{- end }}
{{- end }}
`

// Totals are the catalog-wide counters shown in the text header.
type Totals struct {
	Programs int
	Targets  int
	Probed   int
	Good     int
}

type templateData struct {
	Title     string
	Generated time.Time
	Totals    Totals
	Programs  []store.ProgramView
}

// Summarize counts targets, probed targets and targets with at least one
// good verdict.
func Summarize(programs []store.ProgramView) Totals {
	t := Totals{Programs: len(programs)}
	for _, p := range programs {
		for _, st := range p.ScopeTargets {
			t.Targets++
			if st.TestResult != nil {
				t.Probed++
			}
			if a := st.XSSAnalysis; a != nil && (a.GoodReflectedStored || a.GoodDOM) {
				t.Good++
			}
		}
	}
	return t
}

// Template renders programs through opts.TemplateText, or the built-in
// summary when it is empty. Sprig functions are available along with
// yesNo and status.
func Template(w io.Writer, programs []store.ProgramView, opts Options) error {
	text := opts.TemplateText
	if text == "" {
		text = summaryTemplate
	}

	funcs := sprig.TxtFuncMap()
	funcs["yesNo"] = yesNo
	funcs["status"] = func(code *int) string {
		if code == nil {
			return "none"
		}
		return strconv.Itoa(*code)
	}

	tmpl, err := template.New("report").Funcs(funcs).Parse(text)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	data := templateData{
		Title:     pdfTitle,
		Generated: opts.generated(),
		Totals:    Summarize(programs),
		Programs:  programs,
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("report: execute template: %w", err)
	}
	return nil
}
