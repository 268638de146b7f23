// Package ui implements the operator-facing output of the command-line tools:
// run headers and warnings, failure lines, the confirmation prompt, and the
// summary and quota tables.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/logrusorgru/aurora/v4"
	"golang.org/x/term"
)

// separatorWidth is the width of the header and warning separator lines.
const separatorWidth = 60

// styles holds the styles of one output, rendered for its color profile.
type styles struct {
	title   lipgloss.Style
	warning lipgloss.Style
	au      *aurora.Aurora
}

func newStyles(w io.Writer) styles {
	renderer := lipgloss.NewRenderer(w)

	return styles{
		title: renderer.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")),
		warning: renderer.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F87")),
		au: aurora.New(aurora.WithColors(isTerminal(w))),
	}
}

// isTerminal returns if a writer or reader is an interactive terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(file.Fd())) //nolint:gosec
}
