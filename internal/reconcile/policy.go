package reconcile

// Policy holds the operator intents of one run, which decide the phases that
// run for the directories that already existed.
type Policy struct {
	// DryRun computes and logs every decision, but never mutates.
	DryRun bool

	// Verify compares every phase against the desired state, recording
	// drift as failed. It never mutates and never asks for confirmation.
	Verify bool

	RedoStriping   bool
	RedoProjectIDs bool
	RedoQuotas     bool
	RedoOwnerships bool

	// StrictProjectIDs refuses to restamp an established, but differing
	// project identity.
	StrictProjectIDs bool

	// SkipConfirm bypasses the operator confirmation of a committing run.
	SkipConfirm bool
}

// mutates returns if a run of the [Policy] may change persisted state.
func (p Policy) mutates() bool {
	return !p.DryRun && !p.Verify
}

func (p Policy) redo(phase Phase) bool {
	switch phase {
	case PhaseLayout:
		return p.RedoStriping
	case PhaseIdentity:
		return p.RedoProjectIDs || p.StrictProjectIDs
	case PhaseQuota:
		return p.RedoQuotas
	case PhaseOwnership:
		return p.RedoOwnerships
	default:
		return false
	}
}
