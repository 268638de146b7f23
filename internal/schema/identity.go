package schema

// ProjectIdentity pairs a project (or user) name with the numeric identity
// that the quota subsystem accounts usage under.
type ProjectIdentity struct {
	Name string
	ID   uint32
}

// ProjectStamp is the identity currently stamped on a directory. An ID of 0
// means that no identity was stamped yet.
type ProjectStamp struct {
	ID      uint32
	Inherit bool
}

// IsSet returns if a directory carries an identity at all.
func (s ProjectStamp) IsSet() bool {
	return s.ID != 0
}
