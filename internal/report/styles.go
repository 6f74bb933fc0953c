package report

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#50FA7B")
	warningColor = lipgloss.Color("#F1FA8C")
	errorColor   = lipgloss.Color("#FF5555")
	dimColor     = lipgloss.Color("#6272A4")
	accentColor  = lipgloss.Color("#8BE9FD")
)

type styles struct {
	title   lipgloss.Style
	step    lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	link    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		step:    lipgloss.NewStyle().Bold(true),
		label:   lipgloss.NewStyle().Foreground(dimColor),
		dim:     lipgloss.NewStyle().Foreground(dimColor),
		success: lipgloss.NewStyle().Bold(true).Foreground(successColor),
		warning: lipgloss.NewStyle().Foreground(warningColor),
		failure: lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		link:    lipgloss.NewStyle().Underline(true).Foreground(accentColor),
	}
}

// buildMarkdownRenderer returns a release-notes renderer for the given output
// format. "plain" (or any glamour failure) falls back to word wrapping.
func buildMarkdownRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	if style == "" || style == "rich" || style == "dark" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}

// clip shortens s to limit columns and appends "..." when anything was cut.
func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || ansi.PrintableRuneWidth(s) <= limit {
		return s
	}
	return truncate.String(s, uint(limit)) + "..."
}

// singleLine collapses line breaks so a value fits on one console line.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
