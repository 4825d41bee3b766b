package analyzer

import (
	"fmt"
	"strings"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/strutil"
)

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100

	// goodThreshold is the minimum score of a good target.
	goodThreshold = 50

	// fewScripts is the exclusive bound under which a page counts as
	// having few external scripts.
	fewScripts = 5
)

// Verdict is one scorer's outcome.
type Verdict struct {
	Good   bool
	Score  int
	Reason string
}

// tally accumulates a score and the labels of the factors applied.
type tally struct {
	score   int
	reasons []string
}

func newTally() *tally { return &tally{score: baseScore} }

func (t *tally) add(points int, reason string) {
	t.score += points
	t.reasons = append(t.reasons, reason)
}

func (t *tally) note(reason string) {
	t.reasons = append(t.reasons, reason)
}

func (t *tally) verdict(good bool) Verdict {
	score := clamp(t.score)
	label := "Not recommended"
	if good {
		label = "Good target"
	}
	reasons := strings.Join(strutil.FirstN(t.reasons, defaults.MaxReasons), " | ")
	return Verdict{
		Good:   good,
		Score:  score,
		Reason: fmt.Sprintf("%s (%d/100): %s", label, score, reasons),
	}
}

func clamp(score int) int {
	return max(minScore, min(maxScore, score))
}

// ScoreReflectedStored rates the page as a reflected or stored XSS
// target. A page using a virtual-DOM framework is never a good target,
// whatever its score.
func ScoreReflectedStored(s Signals) Verdict {
	t := newTally()

	switch {
	case s.HasCSP && s.CSPStrict:
		t.add(-30, "Strict CSP (-30)")
	case s.HasCSP:
		t.add(-10, "Weak CSP (-10)")
	default:
		t.note("No CSP")
	}

	if s.HasWAF {
		t.add(-25, "WAF detected (-25)")
	}

	if !s.HasAuth {
		t.add(20, "No auth required (+20)")
	} else {
		t.add(-5, "Auth required (-5)")
	}

	vdom := s.VirtualDOMFrameworks()
	if len(vdom) == 0 {
		t.add(15, "No virtual DOM frameworks (+15)")
	} else {
		t.add(-15, fmt.Sprintf("Virtual DOM frameworks: %s (-15)", strings.Join(vdom, ", ")))
	}

	if s.CustomJSCount < fewScripts {
		t.add(10, "Few JS files (+10)")
	}

	if s.protectiveFrameOptions() {
		t.add(-5, "X-Frame-Options (-5)")
	}

	if !strings.Contains(strings.ToLower(s.ContentTypeOptions), "nosniff") {
		t.add(3, "No X-Content-Type-Options (+3)")
	}

	return t.verdict(len(vdom) == 0 && clamp(t.score) >= goodThreshold)
}

// ScoreDOM rates the page as a DOM-based XSS target. Pages without any
// external script short-circuit to a negative verdict.
func ScoreDOM(s Signals) Verdict {
	t := newTally()

	switch {
	case s.HasCSP && s.CSPStrict:
		t.add(-30, "Strict CSP (-30)")
	case s.HasCSP:
		t.add(-7, "Weak CSP (-10, +3 for bypass potential)")
	default:
		t.add(5, "No CSP (+5)")
	}

	if s.HasWAF {
		t.add(-25, "WAF detected (-25)")
	}

	if !s.HasAuth {
		t.add(20, "No auth (+20)")
	} else {
		t.add(-5, "Auth required (-5)")
	}

	if s.CustomJSCount == 0 {
		return Verdict{
			Good:   false,
			Score:  max(minScore, t.score),
			Reason: "No custom JavaScript detected",
		}
	}

	capped(t, s.CustomJSCount*2, 10, fmt.Sprintf("%d JS files", s.CustomJSCount), true)
	capped(t, s.DOM.Sinks*2, 10, fmt.Sprintf("%d sinks", s.DOM.Sinks), s.DOM.Sinks > 0)
	capped(t, s.DOM.Sources*2, 8, fmt.Sprintf("%d sources", s.DOM.Sources), s.DOM.Sources > 0)
	capped(t, s.DOM.PrototypePollution, 10, "Prototype pollution", s.DOM.PrototypePollution > 2)
	capped(t, s.DOM.MergeOperations*2, 10, "Merge operations", s.DOM.MergeOperations > 1)
	capped(t, s.DOM.RiskyPostMessage*5, 15, "Risky postMessage", s.DOM.RiskyPostMessage > 0)
	capped(t, len(s.VulnerableLibraries)*10, 20, "Vuln libs", len(s.VulnerableLibraries) > 0)

	if s.DOM.InlineScripts > 0 {
		t.add(8, "Inline scripts (+8)")
	}
	if s.DOM.HasUserInput {
		t.add(3, "User input surfaces (+3)")
	}
	if s.DOM.HasContentEditable {
		t.add(3, "ContentEditable (+3)")
	}

	capped(t, s.DOM.FrameworkUnsafe*5, 10, "Framework unsafe", s.DOM.FrameworkUnsafe > 0)

	if s.protectiveFrameOptions() {
		t.add(-5, "X-Frame-Options (-5)")
	}

	return t.verdict(clamp(t.score) >= goodThreshold)
}

// capped adds min(points, limit) labelled "label (+n)" when apply is set.
func capped(t *tally, points, limit int, label string, apply bool) {
	if !apply {
		return
	}
	n := min(points, limit)
	t.add(n, fmt.Sprintf("%s (+%d)", label, n))
}
