// Package reconcile sequences the provisioning, layout, identity, quota and
// ownership phases per directory under a shared [Policy], and aggregates the
// outcomes into a [RunReport].
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scicomp/clusterstor-tools/internal/queue"
	"github.com/scicomp/clusterstor-tools/internal/quota"
	"github.com/scicomp/clusterstor-tools/internal/schema"
)

type fsProvider interface {
	Exists(path string) (bool, error)
	IsEmptyFolder(path string) (bool, error)
}

type provisioner interface {
	Ensure(ctx context.Context, path string, fanout int, dryrun bool) (bool, error)
}

type layoutEnforcer interface {
	Matches(ctx context.Context, path string, ref schema.Layout) (bool, error)
	Apply(ctx context.Context, path string, rule string, dryrun bool) error
}

type identityManager interface {
	Derive(ctx context.Context, name string) (schema.ProjectIdentity, error)
	Stamp(ctx context.Context, path string, identity schema.ProjectIdentity, dryrun bool) error
	Verify(ctx context.Context, path string, identity schema.ProjectIdentity) (bool, error)
	Enforce(ctx context.Context, path string, identity schema.ProjectIdentity, strict bool, dryrun bool) (bool, error)
}

type quotaEnforcer interface {
	Read(ctx context.Context, mountpoint string, id uint32) (schema.QuotaState, error)
	Write(ctx context.Context, mountpoint string, id uint32, pair schema.QuotaPair, dryrun bool) error
}

type ownershipEnforcer interface {
	Enforce(ctx context.Context, path string, group string, owner string, mode uint32, dryrun bool) error
	Verify(ctx context.Context, path string, group string, owner string, mode uint32) (bool, error)
}

// Reporter is the sink for the operator-facing output of a run.
type Reporter interface {
	Header(title string)
	Warning(message string)
	Failure(err error)
}

// Confirmer asks the operator to confirm a committing run. A canceled
// context must end a pending question with [schema.ErrInterrupted].
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Components are the phase implementations used by an [Orchestrator].
type Components struct {
	FS          fsProvider
	Provisioner provisioner
	Layout      layoutEnforcer
	Identity    identityManager
	Quota       quotaEnforcer
	Ownership   ownershipEnforcer
}

// Orchestrator is the principal implementation of the reconciliation engine.
// It is not safe for concurrent use, as runs against the same mountpoint
// must be serialized.
type Orchestrator struct {
	fsHandler   fsProvider
	provisioner provisioner
	layout      layoutEnforcer
	identity    identityManager
	quota       quotaEnforcer
	ownership   ownershipEnforcer
	reporter    Reporter
	confirmer   Confirmer
}

// NewOrchestrator returns a pointer to a new [Orchestrator].
func NewOrchestrator(components Components, reporter Reporter, confirmer Confirmer) *Orchestrator {
	return &Orchestrator{
		fsHandler:   components.FS,
		provisioner: components.Provisioner,
		layout:      components.Layout,
		identity:    components.Identity,
		quota:       components.Quota,
		ownership:   components.Ownership,
		reporter:    reporter,
		confirmer:   confirmer,
	}
}

// run is the state of a single invocation of [Orchestrator.Run].
type run struct {
	policy Policy
	report *RunReport
	nodes  map[*schema.DirectoryDescriptor]*NodeResult
	ids    map[uint32]string
}

// Run reconciles the descriptors in their given (hierarchy) order. Failures
// of a directory are recorded in the returned [RunReport] and do not stop its
// siblings. The rejected errors are directories that could not be resolved
// or validated; they are reported and recorded as failed without being
// reconciled. An error is only returned for conditions ending the whole run,
// [schema.ErrInterrupted] and [schema.ErrConfirmationDeclined], in which case
// the partial [RunReport] is returned alongside it.
func (o *Orchestrator) Run(ctx context.Context, title string, descs []*schema.DirectoryDescriptor, policy Policy, rejected ...error) (*RunReport, error) {
	r := &run{
		policy: policy,
		report: &RunReport{
			Title:     title,
			DryRun:    policy.DryRun,
			Verify:    policy.Verify,
			StartTime: time.Now(),
		},
		nodes: make(map[*schema.DirectoryDescriptor]*NodeResult, len(descs)),
		ids:   make(map[uint32]string),
	}
	defer func() {
		r.report.EndTime = time.Now()
	}()

	q := queue.NewGenericQueue[*schema.DirectoryDescriptor]()
	for _, d := range descs {
		r.nodes[d] = r.report.add(d)
		q.Enqueue(d)
	}

	o.reporter.Header(title)

	for _, err := range rejected {
		n := r.report.addRejected(err)
		o.reporter.Failure(n.Phases[0].Err)
	}

	if err := o.confirm(ctx, policy, len(descs)); err != nil {
		return r.report, err
	}

	err := q.DequeueAndProcess(ctx, func(d *schema.DirectoryDescriptor) queue.Decision {
		p := q.Progress()
		slog.Debug("Progress:",
			"dir", d.Path,
			"item", p.ProcessedItems+1,
			"total", p.TotalItems,
			"failed", p.FailedItems,
			"timeLeft", p.TimeLeft.Round(time.Second),
		)

		return o.reconcile(ctx, r, d)
	})

	if remaining := q.GetRemaining(); len(remaining) > 0 {
		slog.Warn("Directories not reached due to interruption:", "count", len(remaining))
	}

	if err != nil {
		return r.report, fmt.Errorf("(reconcile) %w: %w", schema.ErrInterrupted, err)
	}

	return r.report, nil
}

// confirm gates a committing run on the operator, once per invocation.
func (o *Orchestrator) confirm(ctx context.Context, policy Policy, count int) error {
	if !policy.mutates() || policy.SkipConfirm {
		return nil
	}

	o.reporter.Warning(fmt.Sprintf("This will reconcile %d directories and apply changes to the filesystem.", count))

	ok, err := o.confirmer.Confirm(ctx, "Do you want to continue?")
	if ctx.Err() != nil && !errors.Is(err, schema.ErrInterrupted) {
		err = fmt.Errorf("%w: %w", schema.ErrInterrupted, ctx.Err())
	}
	if errors.Is(err, schema.ErrInterrupted) {
		return fmt.Errorf("(reconcile) %w", err)
	}
	if err != nil {
		return fmt.Errorf("(reconcile) %w: %w", schema.ErrConfirmationDeclined, err)
	}
	if !ok {
		return fmt.Errorf("(reconcile) %w", schema.ErrConfirmationDeclined)
	}

	return nil
}

// reconcile runs all phases for a directory. The backend calls are decoupled
// from the cancellation of the run, so that an interrupt lets an in-flight
// call finish and is observed between the phases.
func (o *Orchestrator) reconcile(ctx context.Context, r *run, d *schema.DirectoryDescriptor) queue.Decision {
	n := r.nodes[d]
	bctx := context.WithoutCancel(ctx)

	slog.Debug("Reconciling directory:", "dir", d.String())

	created, ok := o.provision(bctx, r, n, d)
	if !ok {
		return o.finish(n)
	}

	steps := []struct {
		phase   Phase
		managed bool
		fn      func(context.Context, *run, *NodeResult, *schema.DirectoryDescriptor, bool) bool
	}{
		{PhaseLayout, false, o.reconcileLayout},
		{PhaseIdentity, true, o.reconcileIdentity},
		{PhaseQuota, true, o.reconcileQuota},
		{PhaseOwnership, true, o.reconcileOwnership},
	}

	for i, step := range steps {
		if ctx.Err() != nil {
			n.record(step.phase, OutcomeFailed, schema.ErrInterrupted)
			for _, rest := range steps[i+1:] {
				n.record(rest.phase, OutcomeSkipped, nil)
			}

			return o.finish(n)
		}

		if step.managed && !d.Kind.IsManaged() {
			n.record(step.phase, OutcomeSkipped, nil)

			continue
		}

		if !created && !r.policy.Verify && !r.policy.redo(step.phase) {
			n.record(step.phase, OutcomeSkipped, nil)

			continue
		}

		if !step.fn(bctx, r, n, d, created) {
			for _, rest := range steps[i+1:] {
				n.record(rest.phase, OutcomeSkipped, nil)
			}

			return o.finish(n)
		}
	}

	return o.finish(n)
}

// finish sets the terminal [Status] of a directory from its phase outcomes.
func (o *Orchestrator) finish(n *NodeResult) queue.Decision {
	for _, p := range n.Phases {
		if p.Outcome == OutcomeFailed {
			n.Status = StatusFailed

			return queue.DecisionFailed
		}
	}
	n.Status = StatusDone

	return queue.DecisionDone
}

// fail records a failed phase and reports it to the operator immediately.
func (o *Orchestrator) fail(n *NodeResult, phase Phase, err error) {
	n.record(phase, OutcomeFailed, err)
	o.reporter.Failure(n.Phases[len(n.Phases)-1].Err)
}

// provision returns if the directory was (or would have been) created, and
// if the remaining phases can proceed.
func (o *Orchestrator) provision(ctx context.Context, r *run, n *NodeResult, d *schema.DirectoryDescriptor) (bool, bool) {
	if r.policy.Verify {
		exists, err := o.fsHandler.Exists(d.Path)
		if err != nil {
			o.fail(n, PhaseProvision, err)

			return false, false
		}
		if !exists {
			o.fail(n, PhaseProvision, ErrMissing)

			return false, false
		}
		n.record(PhaseProvision, OutcomeVerified, nil)

		return false, true
	}

	created, err := o.provisioner.Ensure(ctx, d.Path, d.Fanout, r.policy.DryRun)
	if err != nil {
		o.fail(n, PhaseProvision, err)

		return false, false
	}

	if created {
		slog.Info("Created directory:", "path", d.Path, "fanout", d.Fanout, "dryrun", r.policy.DryRun)
		n.record(PhaseProvision, OutcomeApplied, nil)
	} else {
		n.record(PhaseProvision, OutcomeVerified, nil)
	}

	return created, true
}

// reconcileLayout applies the layout rule to fresh directories. Existing
// directories are only compared, and re-laid-out only while empty, as
// changing the layout of existing files requires a data migration. A
// non-empty directory with a differing layout is a warned LayoutConflict,
// which does not fail the directory.
func (o *Orchestrator) reconcileLayout(ctx context.Context, r *run, n *NodeResult, d *schema.DirectoryDescriptor, created bool) bool {
	if created {
		if err := o.layout.Apply(ctx, d.Path, d.LayoutRule, r.policy.DryRun); err != nil {
			o.fail(n, PhaseLayout, err)

			return false
		}
		n.record(PhaseLayout, OutcomeApplied, nil)

		return true
	}

	matches, err := o.layout.Matches(ctx, d.Path, d.Layout)
	if err != nil {
		o.fail(n, PhaseLayout, err)

		return false
	}

	if matches {
		n.record(PhaseLayout, OutcomeVerified, nil)

		return true
	}

	if r.policy.Verify {
		o.fail(n, PhaseLayout, fmt.Errorf("layout %w", ErrDrift))

		return true
	}

	empty, err := o.fsHandler.IsEmptyFolder(d.Path)
	if err != nil {
		o.fail(n, PhaseLayout, err)

		return false
	}

	if !empty {
		n.record(PhaseLayout, OutcomeWarned, schema.ErrLayoutConflict)
		o.reporter.Warning(n.Phases[len(n.Phases)-1].Err.Error())

		return true
	}

	if err := o.layout.Apply(ctx, d.Path, d.LayoutRule, r.policy.DryRun); err != nil {
		o.fail(n, PhaseLayout, err)

		return false
	}
	n.record(PhaseLayout, OutcomeApplied, nil)

	return true
}

// derive returns the identity of a directory, which must be unique among
// the directories of a run.
func (o *Orchestrator) derive(ctx context.Context, r *run, d *schema.DirectoryDescriptor) (schema.ProjectIdentity, error) {
	identity, err := o.identity.Derive(ctx, d.Name)
	if err != nil {
		return schema.ProjectIdentity{}, err
	}

	if other, ok := r.ids[identity.ID]; ok && other != d.Path {
		return schema.ProjectIdentity{}, fmt.Errorf("%w: %d is already used by %s", schema.ErrIdentityConflict, identity.ID, other)
	}
	r.ids[identity.ID] = d.Path

	return identity, nil
}

func (o *Orchestrator) reconcileIdentity(ctx context.Context, r *run, n *NodeResult, d *schema.DirectoryDescriptor, created bool) bool {
	identity, err := o.derive(ctx, r, d)
	if err != nil {
		o.fail(n, PhaseIdentity, err)

		return false
	}

	switch {
	case created:
		err = o.identity.Stamp(ctx, d.Path, identity, r.policy.DryRun)
		if err == nil {
			n.record(PhaseIdentity, OutcomeApplied, nil)
		}

	case r.policy.Verify:
		var ok bool
		ok, err = o.identity.Verify(ctx, d.Path, identity)
		if err == nil && !ok {
			o.fail(n, PhaseIdentity, fmt.Errorf("project identity %w", ErrDrift))

			return true
		}
		if err == nil {
			n.record(PhaseIdentity, OutcomeVerified, nil)
		}

	default:
		var applied bool
		applied, err = o.identity.Enforce(ctx, d.Path, identity, r.policy.StrictProjectIDs, r.policy.DryRun)
		if err == nil {
			n.record(PhaseIdentity, outcomeOf(applied), nil)
		}
	}

	if err != nil {
		o.fail(n, PhaseIdentity, err)

		return false
	}

	return true
}

func (o *Orchestrator) reconcileQuota(ctx context.Context, r *run, n *NodeResult, d *schema.DirectoryDescriptor, created bool) bool {
	identity, err := o.derive(ctx, r, d)
	if err != nil {
		o.fail(n, PhaseQuota, err)

		return false
	}

	if !created {
		state, err := o.quota.Read(ctx, d.Mountpoint, identity.ID)
		if err != nil {
			o.fail(n, PhaseQuota, err)

			return false
		}

		if !quota.NeedsUpdate(d.Quota, state) {
			n.record(PhaseQuota, OutcomeVerified, nil)

			return true
		}

		slog.Info("Quota differs:",
			"path", d.Path,
			"id", identity.ID,
			"bytes", state.ByteQuota,
			"wantBytes", d.Quota.Bytes,
			"inodes", state.InodeQuota,
			"wantInodes", d.Quota.Inodes,
		)

		if r.policy.Verify {
			o.fail(n, PhaseQuota, fmt.Errorf("quota %w", ErrDrift))

			return true
		}
	}

	if err := o.quota.Write(ctx, d.Mountpoint, identity.ID, d.Quota, r.policy.DryRun); err != nil {
		o.fail(n, PhaseQuota, err)

		return false
	}
	n.record(PhaseQuota, OutcomeApplied, nil)

	return true
}

func (o *Orchestrator) reconcileOwnership(ctx context.Context, r *run, n *NodeResult, d *schema.DirectoryDescriptor, _ bool) bool {
	if r.policy.Verify {
		ok, err := o.ownership.Verify(ctx, d.Path, d.Group, d.Owner, d.Mode)
		if err != nil {
			o.fail(n, PhaseOwnership, err)

			return false
		}
		if !ok {
			o.fail(n, PhaseOwnership, fmt.Errorf("ownership %w", ErrDrift))

			return true
		}
		n.record(PhaseOwnership, OutcomeVerified, nil)

		return true
	}

	if err := o.ownership.Enforce(ctx, d.Path, d.Group, d.Owner, d.Mode, r.policy.DryRun); err != nil {
		o.fail(n, PhaseOwnership, err)

		return false
	}
	n.record(PhaseOwnership, OutcomeApplied, nil)

	return true
}

func outcomeOf(applied bool) Outcome {
	if applied {
		return OutcomeApplied
	}

	return OutcomeVerified
}

// IsRunLevel returns if an error ends a whole run rather than a directory.
func IsRunLevel(err error) bool {
	return errors.Is(err, schema.ErrInterrupted) || errors.Is(err, schema.ErrConfirmationDeclined)
}
