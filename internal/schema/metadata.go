package schema

// Metadata holds the stat information relevant for directory reconciliation.
type Metadata struct {
	Inode uint64
	Perms uint32
	UID   uint32
	GID   uint32
	IsDir bool
}
