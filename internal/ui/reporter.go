package ui

import (
	"fmt"
	"io"
	"strings"
)

// Console is the reporting sink printing to a terminal (or any writer).
type Console struct {
	out    io.Writer
	styles styles
}

// NewConsole returns a pointer to a new [Console].
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:    out,
		styles: newStyles(out),
	}
}

// Header prints the upper-cased title of a run between separator lines.
func (c *Console) Header(title string) {
	sep := strings.Repeat("-", separatorWidth)

	fmt.Fprintln(c.out, sep)
	fmt.Fprintln(c.out, c.styles.title.Render(strings.ToUpper(title)))
	fmt.Fprintln(c.out, sep)
}

// Warning prints a framed warning.
func (c *Console) Warning(message string) {
	sep := strings.Repeat("#", separatorWidth)

	fmt.Fprintln(c.out, sep)
	fmt.Fprintln(c.out, c.styles.warning.Render("WARNING: "+message))
	fmt.Fprintln(c.out, sep)
}

// Failure prints a failed directory with its reason.
func (c *Console) Failure(err error) {
	fmt.Fprintf(c.out, "%s %v\n", c.styles.au.Red("FAILED:"), err)
}
