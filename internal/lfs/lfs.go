// Package lfs wraps the administrative command line interface of a Lustre
// filesystem. Mutating commands honor a dry-run flag, in which case the command
// line is only logged and never executed.
package lfs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

// DefaultBinary is the name of the administrative tool looked up in $PATH.
const DefaultBinary = "lfs"

// Client is the principal implementation of the filesystem backend.
type Client struct {
	runner Runner
	binary string
}

// NewClient returns a pointer to a new [Client]. An empty binary falls back
// to the [DefaultBinary].
func NewClient(runner Runner, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}

	return &Client{
		runner: runner,
		binary: binary,
	}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		return out, fmt.Errorf("(lfs) %w", err)
	}

	return out, nil
}

func (c *Client) mutate(ctx context.Context, dryrun bool, args ...string) error {
	if dryrun {
		slog.Info("Dry run: would run:", "cmd", CommandLine(c.binary, args...))

		return nil
	}

	_, err := c.run(ctx, args...)

	return err
}

// SetDirStripe creates a directory with its metadata distributed over count
// metadata targets.
func (c *Client) SetDirStripe(ctx context.Context, path string, count int, dryrun bool) error {
	return c.mutate(ctx, dryrun, "setdirstripe", "-c", strconv.Itoa(count), "-i", "-1", path)
}

// GetDirStripeCount returns the number of metadata targets a directory is
// distributed over.
func (c *Client) GetDirStripeCount(ctx context.Context, path string) (int, error) {
	out, err := c.run(ctx, "getdirstripe", "-c", path)
	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("(lfs-getdirstripe) %w: %q", ErrUnexpectedOutput, out)
	}

	return count, nil
}

// GetStripe returns the default layout of a directory in YAML representation.
func (c *Client) GetStripe(ctx context.Context, path string) ([]byte, error) {
	return c.run(ctx, "getstripe", "-d", "--yaml", path)
}

// SetStripe sets the default layout of a directory from layout arguments.
func (c *Client) SetStripe(ctx context.Context, path string, layoutArgs []string, dryrun bool) error {
	args := append([]string{"setstripe"}, layoutArgs...)
	args = append(args, path)

	return c.mutate(ctx, dryrun, args...)
}

// GetProject returns the project identity currently stamped on a directory.
func (c *Client) GetProject(ctx context.Context, path string) (schema.ProjectStamp, error) {
	out, err := c.run(ctx, "project", "-d", path)
	if err != nil {
		return schema.ProjectStamp{}, err
	}

	return parseProject(out)
}

// SetProject stamps a project identity on a directory, with inheritance.
func (c *Client) SetProject(ctx context.Context, path string, id uint32, dryrun bool) error {
	return c.mutate(ctx, dryrun, "project", "-p", strconv.FormatUint(uint64(id), 10), "-s", path)
}

// GetQuota returns the quota accounting for a project identity.
func (c *Client) GetQuota(ctx context.Context, mountpoint string, id uint32) (schema.QuotaState, error) {
	out, err := c.run(ctx, "quota", "-q", "-p", strconv.FormatUint(uint64(id), 10), mountpoint)
	if err != nil {
		return schema.QuotaState{}, err
	}

	return parseQuota(out, mountpoint)
}

// SetQuota sets the (equal) soft and hard limits for a project identity. The
// limits are passed through as given, in the suffixed form the tool accepts.
func (c *Client) SetQuota(ctx context.Context, mountpoint string, id uint32, blockLimit string, inodeLimit string, dryrun bool) error {
	return c.mutate(ctx, dryrun,
		"setquota", "-p", strconv.FormatUint(uint64(id), 10),
		"-b", blockLimit, "-B", blockLimit,
		"-i", inodeLimit, "-I", inodeLimit,
		mountpoint,
	)
}
