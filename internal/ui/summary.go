package ui

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cheynewallace/tabby"
	"github.com/scicomp/clusterstor-tools/internal/reconcile"
)

// PrintSummary prints the outcomes of all phases of all directories of a
// run, followed by the directories grouped by their final status.
func PrintSummary(out io.Writer, report *reconcile.RunReport) {
	s := newStyles(out)

	mode := "commit"
	switch {
	case report.Verify:
		mode = "verify"
	case report.DryRun:
		mode = "dry run"
	}

	fmt.Fprintf(out, "\n%s (%s, %s)\n", s.au.Bold("Summary"), mode, report.EndTime.Sub(report.StartTime).Round(time.Millisecond))

	t := tabby.NewCustom(tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)) //nolint:mnd
	t.AddHeader("PATH", "KIND", "STATUS", "PROVISION", "LAYOUT", "IDENTITY", "QUOTA", "OWNERSHIP")

	for _, n := range report.Nodes {
		kind := string(n.Kind)
		if kind == "" {
			kind = "-"
		}

		line := []any{n.Path, kind, s.status(n.Status)}
		for _, p := range reconcile.Phases {
			line = append(line, s.outcome(n.Outcome(p)))
		}
		t.AddLine(line...)
	}
	t.Print()

	done := report.ByStatus(reconcile.StatusDone)
	failed := report.ByStatus(reconcile.StatusFailed)
	notReached := report.ByStatus(reconcile.StatusNotReached)

	fmt.Fprintf(out, "\n%d done, %d failed, %d not reached\n", len(done), len(failed), len(notReached))

	if len(failed) > 0 {
		fmt.Fprintln(out, s.au.Red("Failed:"))
		for _, n := range failed {
			fmt.Fprintf(out, "  %s: %v\n", n.Path, n.Err())
		}
	}

	var warned []*reconcile.NodeResult
	for _, n := range report.Nodes {
		if n.Warnings() != nil {
			warned = append(warned, n)
		}
	}

	if len(warned) > 0 {
		fmt.Fprintln(out, s.au.Yellow("Warnings:"))
		for _, n := range warned {
			fmt.Fprintf(out, "  %s: %v\n", n.Path, n.Warnings())
		}
	}

	if len(notReached) > 0 {
		fmt.Fprintln(out, s.au.Yellow("Not reached:"))
		for _, n := range notReached {
			fmt.Fprintf(out, "  %s\n", n.Path)
		}
	}
}

func (s styles) status(st reconcile.Status) string {
	switch st {
	case reconcile.StatusDone:
		return s.au.Green(string(st)).String()
	case reconcile.StatusFailed:
		return s.au.Red(string(st)).String()
	default:
		return s.au.Yellow(string(st)).String()
	}
}

func (s styles) outcome(o reconcile.Outcome) string {
	switch o {
	case reconcile.OutcomeApplied:
		return s.au.Cyan(string(o)).String()
	case reconcile.OutcomeVerified:
		return s.au.Green(string(o)).String()
	case reconcile.OutcomeWarned:
		return s.au.Yellow(string(o)).String()
	case reconcile.OutcomeFailed:
		return s.au.Red(string(o)).String()
	default:
		return string(o)
	}
}
