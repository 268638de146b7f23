package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ExtentEOF marks a layout component extending to the end of the file.
const ExtentEOF int64 = -1

// ComponentKind differentiates regular data components from the components
// placing file data on the metadata targets.
type ComponentKind string

const (
	// ComponentData is a regular component striped over the object targets.
	ComponentData ComponentKind = "data"

	// ComponentMDT is a data-on-metadata component (pattern "mdt").
	ComponentMDT ComponentKind = "mdt"
)

// Component is one extent of a (possibly progressive) file layout.
type Component struct {
	Kind        ComponentKind
	Start       int64
	End         int64
	StripeCount int
	StripeSize  uint64
	Pool        string
}

// String returns the canonical textual form of a [Component].
func (c Component) String() string {
	end := "EOF"
	if c.End != ExtentEOF {
		end = fmt.Sprintf("%d", c.End)
	}

	s := fmt.Sprintf("%s[%d,%s) count=%d size=%d", c.Kind, c.Start, end, c.StripeCount, c.StripeSize)
	if c.Pool != "" {
		s += " pool=" + c.Pool
	}

	return s
}

// Layout is the canonical, ordered list of components describing the default
// layout that a directory passes on to newly created files.
type Layout []Component

// Equal compares two layouts structurally.
func (l Layout) Equal(other Layout) bool {
	return slices.Equal(l, other)
}

// String returns the canonical textual form of a [Layout].
func (l Layout) String() string {
	parts := make([]string, 0, len(l))
	for _, c := range l {
		parts = append(parts, c.String())
	}

	return strings.Join(parts, "; ")
}
