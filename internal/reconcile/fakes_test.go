package reconcile

import (
	"context"
	"fmt"
	"maps"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

type fakeDir struct {
	layout schema.Layout
	stamp  schema.ProjectStamp
	group  string
	owner  string
	mode   uint32
	files  int
}

// fakeBackend is an in-memory filesystem with a directory service and a
// quota subsystem, implementing all phases of the orchestrator.
type fakeBackend struct {
	dirs      map[string]*fakeDir
	ids       map[string]uint32
	quotas    map[uint32]schema.QuotaPair
	reference schema.Layout
	failures  map[string]error
	mutations []string
	onMutate  func(op string)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		dirs:      make(map[string]*fakeDir),
		ids:       make(map[string]uint32),
		quotas:    make(map[uint32]schema.QuotaPair),
		reference: schema.Layout{{Kind: schema.ComponentData, Start: 0, End: schema.ExtentEOF, StripeCount: 1, StripeSize: 1 << 20}},
		failures:  make(map[string]error),
	}
}

// clone returns an independent copy of the observable state.
func (b *fakeBackend) clone() *fakeBackend {
	c := newFakeBackend()
	for path, d := range b.dirs {
		dc := *d
		c.dirs[path] = &dc
	}
	c.ids = maps.Clone(b.ids)
	c.quotas = maps.Clone(b.quotas)
	c.reference = b.reference

	return c
}

func (b *fakeBackend) mutate(op string, path string) error {
	if err, ok := b.failures[op+":"+path]; ok {
		return err
	}
	b.mutations = append(b.mutations, op+":"+path)
	if b.onMutate != nil {
		b.onMutate(op + ":" + path)
	}

	return nil
}

func (b *fakeBackend) components() Components {
	return Components{
		FS:          b,
		Provisioner: b,
		Layout:      b,
		Identity:    &fakeIdentity{b},
		Quota:       b,
		Ownership:   &fakeOwnership{b},
	}
}

func (b *fakeBackend) Exists(path string) (bool, error) {
	_, ok := b.dirs[path]

	return ok, nil
}

func (b *fakeBackend) IsEmptyFolder(path string) (bool, error) {
	d, ok := b.dirs[path]
	if !ok {
		return false, fmt.Errorf("no such directory: %s", path)
	}

	return d.files == 0, nil
}

func (b *fakeBackend) Ensure(_ context.Context, path string, _ int, dryrun bool) (bool, error) {
	if _, ok := b.dirs[path]; ok {
		return false, nil
	}
	if err, ok := b.failures["provision:"+path]; ok {
		return false, fmt.Errorf("%w: %w", schema.ErrProvision, err)
	}
	if dryrun {
		return true, nil
	}
	if err := b.mutate("provision", path); err != nil {
		return false, err
	}
	b.dirs[path] = &fakeDir{mode: 0o755}

	return true, nil
}

func (b *fakeBackend) Matches(_ context.Context, path string, ref schema.Layout) (bool, error) {
	d, ok := b.dirs[path]
	if !ok {
		return false, fmt.Errorf("no such directory: %s", path)
	}

	return d.layout.Equal(ref), nil
}

func (b *fakeBackend) Apply(_ context.Context, path string, _ string, dryrun bool) error {
	if dryrun {
		return nil
	}
	if err := b.mutate("layout", path); err != nil {
		return err
	}
	b.dirs[path].layout = b.reference

	return nil
}

func (b *fakeBackend) Read(_ context.Context, _ string, id uint32) (schema.QuotaState, error) {
	q := b.quotas[id]

	return schema.QuotaState{ByteQuota: q.Bytes, InodeQuota: q.Inodes}, nil
}

func (b *fakeBackend) Write(_ context.Context, _ string, id uint32, pair schema.QuotaPair, dryrun bool) error {
	if dryrun {
		return nil
	}
	if err := b.mutate("quota", fmt.Sprint(id)); err != nil {
		return err
	}
	b.quotas[id] = pair

	return nil
}

type fakeIdentity struct {
	*fakeBackend
}

func (f *fakeIdentity) Derive(_ context.Context, name string) (schema.ProjectIdentity, error) {
	id, ok := f.ids[name]
	if !ok {
		return schema.ProjectIdentity{}, fmt.Errorf("%w: %s", schema.ErrIdentityUnresolved, name)
	}

	return schema.ProjectIdentity{Name: name, ID: id}, nil
}

func (f *fakeIdentity) Stamp(_ context.Context, path string, identity schema.ProjectIdentity, dryrun bool) error {
	if dryrun {
		return nil
	}
	if err := f.mutate("identity", path); err != nil {
		return err
	}
	f.dirs[path].stamp = schema.ProjectStamp{ID: identity.ID, Inherit: true}

	return nil
}

func (f *fakeIdentity) Verify(_ context.Context, path string, identity schema.ProjectIdentity) (bool, error) {
	stamp := f.dirs[path].stamp

	return stamp.ID == identity.ID && stamp.Inherit, nil
}

func (f *fakeIdentity) Enforce(ctx context.Context, path string, identity schema.ProjectIdentity, strict bool, dryrun bool) (bool, error) {
	stamp := f.dirs[path].stamp

	switch {
	case stamp.ID == identity.ID && stamp.Inherit:
		return false, nil
	case stamp.IsSet() && stamp.ID != identity.ID && strict:
		return false, fmt.Errorf("%w: %s", schema.ErrIdentityConflict, path)
	}

	return true, f.Stamp(ctx, path, identity, dryrun)
}

type fakeOwnership struct {
	*fakeBackend
}

func (f *fakeOwnership) Enforce(_ context.Context, path string, group string, owner string, mode uint32, dryrun bool) error {
	if dryrun {
		return nil
	}
	if err := f.mutate("ownership", path); err != nil {
		return err
	}
	d := f.dirs[path]
	d.group, d.owner, d.mode = group, owner, mode

	return nil
}

func (f *fakeOwnership) Verify(_ context.Context, path string, group string, owner string, mode uint32) (bool, error) {
	d := f.dirs[path]

	return d.group == group && d.owner == owner && d.mode == mode, nil
}

type fakeReporter struct {
	headers  []string
	warnings []string
	failures []error
}

func (r *fakeReporter) Header(title string) {
	r.headers = append(r.headers, title)
}

func (r *fakeReporter) Warning(message string) {
	r.warnings = append(r.warnings, message)
}

func (r *fakeReporter) Failure(err error) {
	r.failures = append(r.failures, err)
}

type fakeConfirmer struct {
	answer bool
	calls  int

	// block waits for the context instead of answering.
	block bool
}

func (c *fakeConfirmer) Confirm(ctx context.Context, _ string) (bool, error) {
	c.calls++

	if c.block {
		<-ctx.Done()

		return false, fmt.Errorf("%w: %w", schema.ErrInterrupted, ctx.Err())
	}

	return c.answer, nil
}
