package schema

import "fmt"

// Kind is the role of a directory within the managed hierarchy.
type Kind string

const (
	// KindDepartment is a top-level department directory (metadata fan-out).
	KindDepartment Kind = "department"

	// KindProject is a project directory below a [KindDepartment].
	KindProject Kind = "project"

	// KindWorkRoot is the root of all user work directories (metadata fan-out).
	KindWorkRoot Kind = "work-root"

	// KindUser is a user work directory below the [KindWorkRoot].
	KindUser Kind = "user"
)

// IsManaged returns if a [Kind] carries a project identity, a quota and an
// ownership, or if it is merely a structural container directory.
func (k Kind) IsManaged() bool {
	return k == KindProject || k == KindUser
}

// DirectoryDescriptor is the fully resolved desired state of one directory
// node. It is derived fresh on every run and never persisted.
type DirectoryDescriptor struct {
	Name       string
	Path       string
	Parent     string
	Kind       Kind
	Fanout     int
	LayoutRule string
	Layout     Layout
	Quota      QuotaPair
	QuotaSpec  QuotaSpec
	Group      string
	Owner      string
	Mode       uint32
	Mountpoint string
}

// String returns a short human-readable representation of the descriptor.
func (d *DirectoryDescriptor) String() string {
	return fmt.Sprintf("%s %q (%s)", d.Kind, d.Name, d.Path)
}
