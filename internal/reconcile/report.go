package reconcile

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/scicomp/clusterstor-tools/internal/schema"
	"go.uber.org/multierr"
)

// Phase is one step of the reconciliation of a directory.
type Phase string

const (
	// PhaseResolve is the step before reconciliation, in which a directory
	// is resolved from the configuration and validated.
	PhaseResolve Phase = "resolve"

	PhaseProvision Phase = "provision"
	PhaseLayout    Phase = "layout"
	PhaseIdentity  Phase = "identity"
	PhaseQuota     Phase = "quota"
	PhaseOwnership Phase = "ownership"
)

// Phases are all reconciliation phases in their order of execution.
var Phases = []Phase{PhaseProvision, PhaseLayout, PhaseIdentity, PhaseQuota, PhaseOwnership}

// Outcome is the result of one phase of one directory.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeApplied  Outcome = "applied"
	OutcomeVerified Outcome = "verified"
	OutcomeWarned   Outcome = "warned"
	OutcomeFailed   Outcome = "failed"
)

// Status is the terminal state of a directory within a run.
type Status string

const (
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusNotReached Status = "not-reached"
)

// PhaseResult is the recorded outcome of a single phase.
type PhaseResult struct {
	Phase   Phase
	Outcome Outcome
	Err     error
}

// NodeResult holds the phase results of one directory.
type NodeResult struct {
	Name   string
	Path   string
	Kind   schema.Kind
	Status Status
	Phases []PhaseResult
}

// Outcome returns the outcome of a phase, phases that were never recorded
// count as skipped.
func (n *NodeResult) Outcome(phase Phase) Outcome {
	for _, r := range n.Phases {
		if r.Phase == phase {
			return r.Outcome
		}
	}

	return OutcomeSkipped
}

// Err returns the combined errors of all failed phases of the directory.
func (n *NodeResult) Err() error {
	return n.errs(OutcomeFailed)
}

// Warnings returns the combined findings of all warned phases.
func (n *NodeResult) Warnings() error {
	return n.errs(OutcomeWarned)
}

func (n *NodeResult) errs(outcome Outcome) error {
	var err error
	for _, r := range n.Phases {
		if r.Outcome == outcome {
			err = multierr.Append(err, r.Err)
		}
	}

	return err
}

func (n *NodeResult) record(phase Phase, outcome Outcome, err error) {
	if err != nil {
		err = &schema.NodeError{Path: n.Path, Phase: string(phase), Err: err}
	}
	n.Phases = append(n.Phases, PhaseResult{Phase: phase, Outcome: outcome, Err: err})
}

// RunReport is the append-only record of a run, in the order the directories
// were visited.
type RunReport struct {
	Title     string
	DryRun    bool
	Verify    bool
	StartTime time.Time
	EndTime   time.Time
	Nodes     []*NodeResult
}

// Node returns the [NodeResult] of a path, or nil if it is not in the report.
func (r *RunReport) Node(path string) *NodeResult {
	for _, n := range r.Nodes {
		if n.Path == path {
			return n
		}
	}

	return nil
}

// ByStatus returns all directories that ended in a [Status].
func (r *RunReport) ByStatus(status Status) []*NodeResult {
	var nodes []*NodeResult
	for _, n := range r.Nodes {
		if n.Status == status {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// Count returns how many phases of all directories had an [Outcome].
func (r *RunReport) Count(outcome Outcome) int {
	count := 0
	for _, n := range r.Nodes {
		for _, p := range n.Phases {
			if p.Outcome == outcome {
				count++
			}
		}
	}

	return count
}

// Err returns the combined errors of all directories, or nil if no phase of
// any directory failed.
func (r *RunReport) Err() error {
	var err error
	for _, n := range r.Nodes {
		err = multierr.Append(err, n.Err())
	}

	return err
}

// addRejected records a directory that failed before reconciliation, when
// its descriptor was resolved or validated. A [schema.NodeError] carries the
// path and the step it was rejected in.
func (r *RunReport) addRejected(err error) *NodeResult {
	n := &NodeResult{Status: StatusFailed}
	result := PhaseResult{Phase: PhaseResolve, Outcome: OutcomeFailed, Err: err}

	var nodeErr *schema.NodeError
	if errors.As(err, &nodeErr) {
		n.Path = nodeErr.Path
		n.Name = filepath.Base(nodeErr.Path)
		result.Phase = Phase(nodeErr.Phase)
	}

	n.Phases = append(n.Phases, result)
	r.Nodes = append(r.Nodes, n)

	return n
}

func (r *RunReport) add(d *schema.DirectoryDescriptor) *NodeResult {
	n := &NodeResult{
		Name:   d.Name,
		Path:   d.Path,
		Kind:   d.Kind,
		Status: StatusNotReached,
	}
	r.Nodes = append(r.Nodes, n)

	return n
}
