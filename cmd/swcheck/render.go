package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/breeze-rmm/swcheck/internal/batch"
	"github.com/breeze-rmm/swcheck/internal/removal"
)

var (
	colorSuccess = lipgloss.Color("#22c55e")
	colorError   = lipgloss.Color("#ef4444")
	colorWarning = lipgloss.Color("#eab308")
	colorMuted   = lipgloss.Color("#6b7280")

	installedStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	missingStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	failureStyle   = lipgloss.NewStyle().Foreground(colorError)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	doneStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
)

func init() {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// renderer writes reports, styling them only for interactive terminals.
type renderer struct {
	w      io.Writer
	styled bool
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w, styled: isTerminal(w)}
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *renderer) queryReport(report batch.QueryReport) {
	for _, res := range report.Results {
		style := missingStyle
		if res.Found {
			style = installedStyle
		}
		fmt.Fprintln(r.w, r.style(style, batch.FormatResult(res)))
	}
}

func (r *renderer) removalReport(report batch.RemovalReport, dry bool) {
	if dry {
		for _, o := range report.Outcomes {
			if o.DryRun {
				fmt.Fprintln(r.w, r.style(warningStyle, dryRunLine(o)))
			}
		}
	}
	for _, msg := range report.Notifications() {
		fmt.Fprintln(r.w, r.style(failureStyle, msg))
	}
	fmt.Fprintln(r.w, r.style(doneStyle, batch.CompletionSignal))
}

func (r *renderer) warning(msg string) {
	fmt.Fprintln(r.w, r.style(warningStyle, "warning: "+msg))
}

func dryRunLine(o removal.Outcome) string {
	return fmt.Sprintf("[dry-run] %s: %s", o.QueryName, o.Strategy)
}
