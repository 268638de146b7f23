package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/scicomp/clusterstor-tools/internal/lfs"
)

// DefaultGetent is the name of the directory service lookup tool.
const DefaultGetent = "getent"

// getentNotFound is the exit code of getent for unknown keys.
const getentNotFound = 2

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Entry is a resolved group or user from the directory service.
type Entry struct {
	Name    string
	ID      uint32
	GID     uint32
	Members []string
}

// Directory looks up groups and users through the directory service. Lookups
// are cached for the lifetime of the [Directory].
type Directory struct {
	sync.Mutex
	runner commandRunner
	binary string
	groups map[string]Entry
	users  map[string]Entry
}

// NewDirectory returns a pointer to a new [Directory]. An empty binary falls
// back to the [DefaultGetent].
func NewDirectory(runner commandRunner, binary string) *Directory {
	if binary == "" {
		binary = DefaultGetent
	}

	return &Directory{
		runner: runner,
		binary: binary,
		groups: make(map[string]Entry),
		users:  make(map[string]Entry),
	}
}

// Group resolves a group by name. Unknown groups are [ErrNotFound].
func (d *Directory) Group(ctx context.Context, name string) (Entry, error) {
	d.Lock()
	defer d.Unlock()

	if e, ok := d.groups[name]; ok {
		return e, nil
	}

	fields, err := d.lookup(ctx, "group", name)
	if err != nil {
		return Entry{}, err
	}

	// name:password:gid:member,member
	if len(fields) < 4 { //nolint:mnd
		return Entry{}, fmt.Errorf("(identity-group) %w: %q", lfs.ErrUnexpectedOutput, strings.Join(fields, ":"))
	}

	gid, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("(identity-group) %w: gid %q", lfs.ErrUnexpectedOutput, fields[2])
	}

	e := Entry{Name: fields[0], ID: uint32(gid), GID: uint32(gid)}
	for _, m := range strings.Split(fields[3], ",") {
		if m = strings.TrimSpace(m); m != "" {
			e.Members = append(e.Members, m)
		}
	}

	d.groups[name] = e

	return e, nil
}

// User resolves a user by name. Unknown users are [ErrNotFound].
func (d *Directory) User(ctx context.Context, name string) (Entry, error) {
	d.Lock()
	defer d.Unlock()

	if e, ok := d.users[name]; ok {
		return e, nil
	}

	fields, err := d.lookup(ctx, "passwd", name)
	if err != nil {
		return Entry{}, err
	}

	// name:password:uid:gid:gecos:home:shell
	if len(fields) < 4 { //nolint:mnd
		return Entry{}, fmt.Errorf("(identity-user) %w: %q", lfs.ErrUnexpectedOutput, strings.Join(fields, ":"))
	}

	uid, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("(identity-user) %w: uid %q", lfs.ErrUnexpectedOutput, fields[2])
	}

	gid, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("(identity-user) %w: gid %q", lfs.ErrUnexpectedOutput, fields[3])
	}

	e := Entry{Name: fields[0], ID: uint32(uid), GID: uint32(gid)}
	d.users[name] = e

	return e, nil
}

func (d *Directory) lookup(ctx context.Context, database string, name string) ([]string, error) {
	out, err := d.runner.Run(ctx, d.binary, database, name)
	if err != nil {
		var cmdErr *lfs.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == getentNotFound {
			return nil, fmt.Errorf("(identity-%s) %w: %s", database, ErrNotFound, name)
		}

		return nil, fmt.Errorf("(identity-%s) %w", database, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return nil, fmt.Errorf("(identity-%s) %w: %s", database, ErrNotFound, name)
	}

	return strings.Split(line, ":"), nil
}
