package analyzer

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/patterns"
	"github.com/waftester/bountyscout/pkg/strutil"
)

// Signals is everything the scorers look at. Both scorers are pure
// functions of a Signals value.
type Signals struct {
	Frameworks          []string
	HasCSP              bool
	CSPStrict           bool
	HasWAF              bool
	HasAuth             bool
	CustomJSCount       int
	DOM                 model.DOMSignals
	VulnerableLibraries []model.VulnerableLibrary

	// XFrameOptions and ContentTypeOptions are raw header values.
	XFrameOptions      string
	ContentTypeOptions string
}

// VirtualDOMFrameworks returns the detected frameworks that escape output
// by default.
func (s Signals) VirtualDOMFrameworks() []string {
	var out []string
	for _, f := range s.Frameworks {
		if patterns.IsVirtualDOM(f) {
			out = append(out, f)
		}
	}
	return out
}

// protectiveFrameOptions reports an X-Frame-Options of deny or sameorigin.
func (s Signals) protectiveFrameOptions() bool {
	v := strings.ToLower(s.XFrameOptions)
	return v == "deny" || v == "sameorigin"
}

// Evaluate scores a 200 response with the built-in rule catalog.
func Evaluate(status int, header http.Header, body []byte) model.Analysis {
	return evaluate(patterns.Default(), status, header, body)
}

func evaluate(engine *patterns.Engine, status int, header http.Header, body []byte) model.Analysis {
	html := string(body)
	csp := header.Get("Content-Security-Policy")
	jsFiles := engine.Submatches(patterns.CategoryScriptSrc, html, 1)

	sig := Signals{
		Frameworks:          engine.Frameworks(html),
		HasCSP:              csp != "",
		CSPStrict:           cspStrict(csp),
		HasWAF:              detectWAF(header),
		HasAuth:             strutil.ContainsAnyFold(html, patterns.AuthKeywords),
		CustomJSCount:       len(jsFiles),
		DOM:                 domSignals(engine, html),
		VulnerableLibraries: engine.VulnerableLibraries(html),
		XFrameOptions:       header.Get("X-Frame-Options"),
		ContentTypeOptions:  header.Get("X-Content-Type-Options"),
	}

	rs := ScoreReflectedStored(sig)
	dom := ScoreDOM(sig)

	data := model.AnalysisData{
		Frameworks:     sig.Frameworks,
		JSFiles:        strutil.FirstN(jsFiles, defaults.MaxListedJSFiles),
		DOM:            sig.DOM,
		CSPHeader:      strutil.Truncate(csp, defaults.MaxCSPHeaderLen),
		Headers:        evidenceHeaders(header),
		PatternVersion: patterns.Version,
	}
	data.PageTitle, data.FormCount = inventory(body)

	return model.Analysis{
		GoodReflectedStored:     rs.Good,
		GoodDOM:                 dom.Good,
		ReflectedStoredScore:    rs.Score,
		DOMScore:                dom.Score,
		ReflectedStoredReason:   rs.Reason,
		DOMReason:               dom.Reason,
		StatusCode:              status,
		Frameworks:              sig.Frameworks,
		HasCSP:                  sig.HasCSP,
		CSPStrict:               sig.CSPStrict,
		HasWAF:                  sig.HasWAF,
		HasAuth:                 sig.HasAuth,
		CustomJSCount:           sig.CustomJSCount,
		SinkCount:               sig.DOM.Sinks,
		SourceCount:             sig.DOM.Sources,
		PrototypePollutionCount: sig.DOM.PrototypePollution,
		VulnerableLibraries:     sig.VulnerableLibraries,
		Data:                    data,
	}
}

// cspStrict reports a policy that allows neither inline scripts nor eval.
// An empty policy is not strict.
func cspStrict(policy string) bool {
	if policy == "" {
		return false
	}
	return !strutil.ContainsAnyFold(policy, patterns.CSPUnsafeTokens)
}

func detectWAF(header http.Header) bool {
	for _, name := range patterns.WAFHeaders {
		if strutil.ContainsAnyFold(header.Get(name), patterns.WAFTokens) {
			return true
		}
	}
	return false
}

func domSignals(engine *patterns.Engine, html string) model.DOMSignals {
	handlers := engine.Matches(patterns.CategoryPostMessage, html)
	risky := 0
	for _, h := range handlers {
		if !engine.Any(patterns.CategoryOriginCheck, h) {
			risky++
		}
	}
	return model.DOMSignals{
		Sinks:               engine.Count(patterns.CategorySink, html),
		Sources:             engine.Count(patterns.CategorySource, html),
		PrototypePollution:  engine.Count(patterns.CategoryPrototype, html),
		MergeOperations:     engine.Count(patterns.CategoryMerge, html),
		FrameworkUnsafe:     engine.Count(patterns.CategoryFrameworkUnsafe, html),
		PostMessageHandlers: len(handlers),
		RiskyPostMessage:    risky,
		InlineScripts:       engine.Count(patterns.CategoryInlineScript, html),
		HasUserInput:        engine.Any(patterns.CategoryUserInput, html),
		HasContentEditable:  engine.Any(patterns.CategoryContentEditable, html),
	}
}

func evidenceHeaders(header http.Header) map[string]string {
	out := make(map[string]string, 2)
	for _, name := range []string{"x-frame-options", "x-content-type-options"} {
		if v := header.Get(name); v != "" {
			out[name] = v
		}
	}
	return out
}

// inventory extracts the page title and form count. Parse errors leave
// both empty.
func inventory(body []byte) (title string, forms int) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", 0
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	return strutil.Ellipsis(title, 200), doc.Find("form").Length()
}
