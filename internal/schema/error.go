package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is an error that occurs when a configuration node is malformed.
	// It isolates the offending node, unless it concerns the site defaults.
	ErrConfig = errors.New("configuration error")

	// ErrProvision is an error that occurs when the backend refuses to create a
	// directory. It is fatal for the node, but not for its siblings.
	ErrProvision = errors.New("provisioning failed")

	// ErrLayoutConflict is an error that occurs when the layout of a non-empty
	// directory does not match the reference. It is reported, but not
	// corrected, as that would require a data migration.
	ErrLayoutConflict = errors.New("layout conflict on non-empty directory")

	// ErrIdentityConflict is an error that occurs when the stamped project
	// identity disagrees with the derived one under strict checking, or when
	// two nodes derive the same identity.
	ErrIdentityConflict = errors.New("project identity conflict")

	// ErrIdentityUnresolved is an error that occurs when no identity can be
	// derived for a name from the directory service.
	ErrIdentityUnresolved = errors.New("project identity cannot be resolved")

	// ErrQuotaFormat is an error that occurs when a quota value is not a
	// number followed by an optional suffix among k, M, G, T, P and E.
	ErrQuotaFormat = errors.New("malformed quota value")

	// ErrInterrupted is an error that occurs when the operator interrupted a
	// run. It is fatal for the whole run.
	ErrInterrupted = errors.New("run was interrupted")

	// ErrConfirmationDeclined is an error that occurs when the operator did
	// not confirm the first mutating action of a run.
	ErrConfirmationDeclined = errors.New("operator declined confirmation")
)

// NodeError is an error that is tied to a directory node and the phase in
// which it occurred.
type NodeError struct {
	Path  string
	Phase string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Phase, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
