package ui

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
	"github.com/scicomp/clusterstor-tools/internal/schema"
)

// QuotaRow is the quota accounting of one project or user name.
type QuotaRow struct {
	Name       string
	Found      bool
	ID         uint32
	Mountpoint string
	State      schema.QuotaState
	Err        error
}

// PrintQuotas prints the identity, usage and limits per name. Names that
// could not be resolved or read are printed with their reason.
func PrintQuotas(out io.Writer, rows []QuotaRow) {
	s := newStyles(out)

	t := tabby.NewCustom(tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)) //nolint:mnd
	t.AddHeader("NAME", "ID", "USED", "LIMIT", "FILES", "FILE LIMIT", "MOUNTPOINT")

	for _, r := range rows {
		switch {
		case !r.Found:
			t.AddLine(r.Name, "-", s.au.Yellow("not found").String(), "", "", "", "")
		case r.Err != nil:
			t.AddLine(r.Name, r.ID, s.au.Red(fmt.Sprintf("error: %v", r.Err)).String(), "", "", "", r.Mountpoint)
		default:
			t.AddLine(r.Name, r.ID,
				humanize.IBytes(r.State.ByteUsage),
				formatLimit(r.State.ByteQuota, humanize.IBytes),
				humanize.Comma(int64(r.State.InodeUsage)),                                                  //nolint:gosec
				formatLimit(r.State.InodeQuota, func(n uint64) string { return humanize.Comma(int64(n)) }), //nolint:gosec
				r.Mountpoint,
			)
		}
	}

	t.Print()
}

func formatLimit(n uint64, format func(uint64) string) string {
	if n == 0 {
		return "none"
	}

	return format(n)
}
