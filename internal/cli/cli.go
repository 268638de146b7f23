// Package cli implements the command line entry points of the tools.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/scicomp/clusterstor-tools/internal/schema"
	"github.com/spf13/cobra"
)

// Exit statuses of the commands.
const (
	ExitOK          = 0
	ExitFailures    = 1
	ExitRunError    = 2
	ExitInterrupted = 130
)

// ErrNodeFailures is an error that occurs when a run completed, but some of
// its directories or names failed.
var ErrNodeFailures = errors.New("some directories failed")

// ExitCode maps the error of a command to its exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, schema.ErrInterrupted):
		return ExitInterrupted
	case errors.Is(err, ErrNodeFailures):
		return ExitFailures
	default:
		return ExitRunError
	}
}

// Execute runs a command with a context that is canceled on interrupt, and
// returns its exit status.
func Execute(cmd *cobra.Command, args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := setupSignalHandlers(cancel)
	defer stop()

	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrNodeFailures) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	return ExitCode(err)
}
