// Package ui renders terminal output for the bountyscout CLI: the banner,
// section headers, status lines and the scan progress bar.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/waftester/bountyscout/pkg/defaults"
)

// Build information, overridable via ldflags:
// go build -ldflags "-X github.com/waftester/bountyscout/pkg/ui.Commit=abc123"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	out         io.Writer = os.Stderr
	uiMu        sync.RWMutex
)

// SetOutput redirects the Print helpers. Nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	uiMu.Lock()
	defer uiMu.Unlock()
	out = w
}

func writer() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

// SetSilent enables or disables silent mode (suppresses informational
// output; errors still print).
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled.
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

const bannerArt = `
    __                      __
   / /_  ____  __  ______  / /___  ________________  __  __/ /_
  / __ \/ __ \/ / / / __ \/ __/ / / / ___/ ___/ __ \/ / / / __/
 / /_/ / /_/ / /_/ / / / / /_/ /_/ (__  ) /__/ /_/ / /_/ / /_
/_.___/\____/\__,_/_/ /_/\__/\__, /____/\___/\____/\__,_/\__/
                            /____/
`

// PrintBanner prints the banner with version info.
func PrintBanner() {
	if IsSilent() {
		return
	}
	w := writer()
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "%30s\n\n", "v"+VersionStyle.Render(Version))
}

// PrintDivider prints a stylized divider.
func PrintDivider() {
	fmt.Fprintln(writer(), DividerStyle.Render(strings.Repeat("-", 75)))
}

// PrintSection prints a section header.
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	w := writer()
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintConfigLine prints a single config line.
func PrintConfigLine(key, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(writer(), "  %s %s\n",
		ConfigLabelStyle.Render(key+":"),
		ConfigValueStyle.Render(value),
	)
}

// PrintSuccess prints a success message.
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(writer(), PassStyle.Render("  "+Icon("✓", "[+]")+" "+message))
}

// PrintError prints an error message. It is shown even in silent mode.
func PrintError(message string) {
	fmt.Fprintln(writer(), FailStyle.Render("  "+Icon("✗", "[X]")+" "+message))
}

// PrintWarning prints a warning message.
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(writer(), WarnStyle.Render("  [!] "+message))
}

// PrintInfo prints an info message.
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(writer(), "  %s %s\n", ProgressFullStyle.Render("*"), SanitizeString(message))
}

// PrintHelp prints contextual help.
func PrintHelp(text string) {
	fmt.Fprintln(writer(), HelpStyle.Render("  [i] "+text))
}
