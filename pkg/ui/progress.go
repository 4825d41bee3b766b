package ui

import (
	"fmt"
	"strings"

	"github.com/waftester/bountyscout/pkg/model"
)

// ProgressBar is a static bar rendered from a percentage.
type ProgressBar struct {
	width int
}

// NewProgressBar creates a bar width cells wide.
func NewProgressBar(width int) *ProgressBar {
	if width < 1 {
		width = 1
	}
	return &ProgressBar{width: width}
}

// Render renders the bar at percent (0-100, clamped).
func (pb *ProgressBar) Render(percent float64) string {
	filled := int(float64(pb.width) * percent / 100)
	if filled < 0 {
		filled = 0
	}
	if filled > pb.width {
		filled = pb.width
	}
	return ProgressFullStyle.Render(strings.Repeat("#", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat(".", pb.width-filled))
}

// FormatProgress renders a one-line view of a progress snapshot:
//
//	[#####.....] 3/10 acme  scope 200  target 4/12  Fetching Scope Targets
func FormatProgress(p model.Progress, barWidth int) string {
	var b strings.Builder
	b.WriteString(BracketStyle.Render("["))
	b.WriteString(NewProgressBar(barWidth).Render(p.Percent()))
	b.WriteString(BracketStyle.Render("]"))
	fmt.Fprintf(&b, " %s", StatValueStyle.Render(fmt.Sprintf("%d/%d", p.Current, p.Total)))
	if p.CurrentProgram != "" {
		fmt.Fprintf(&b, " %s", p.CurrentProgram)
	}
	if p.ScopeCount != nil {
		fmt.Fprintf(&b, "  %s %d", StatLabelStyle.Render("scope"), *p.ScopeCount)
	}
	if p.TotalScopeTargets > 0 {
		fmt.Fprintf(&b, "  %s %d/%d", StatLabelStyle.Render("target"), p.CurrentScopeTargetNumber, p.TotalScopeTargets)
	}
	if p.Message != "" {
		fmt.Fprintf(&b, "  %s", StatLabelStyle.Render(p.Message))
	}
	if p.Status != model.StatusScanning && p.Status != "" {
		fmt.Fprintf(&b, "  %s", StatusStyle(string(p.Status)).Render(Title(string(p.Status))))
	}
	return b.String()
}
