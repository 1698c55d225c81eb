// Package gitcli is a thin wrapper over the git CLI binary (spec §1: out of
// core, used only for context detection convenience), grounded on the
// teacher's direct-exec idiom for external tool binaries.
package gitcli

import (
	"context"
	"strings"
	"time"

	"github.com/Azure/cmdpilot/internal/command"
)

// Client wraps a Command Runner with git-specific convenience methods.
type Client struct {
	Runner  command.Execer
	Timeout time.Duration
}

// New builds a Client with a short default timeout; git metadata queries
// never need the long budget a build or push does.
func New(runner command.Execer) *Client {
	return &Client{Runner: runner, Timeout: 5 * time.Second}
}

// IsRepo reports whether dir is inside a git working tree.
func (c *Client) IsRepo(ctx context.Context, dir string) bool {
	res, err := c.Runner.Run(ctx, command.Request{
		Command:    "git rev-parse --is-inside-work-tree",
		WorkingDir: dir,
		Timeout:    c.Timeout,
	})
	return err == nil && res.Success && strings.TrimSpace(res.Stdout) == "true"
}

// CurrentBranch returns the checked-out branch name, or "" if dir is not a
// repository or is in a detached HEAD state.
func (c *Client) CurrentBranch(ctx context.Context, dir string) string {
	res, err := c.Runner.Run(ctx, command.Request{
		Command:    "git rev-parse --abbrev-ref HEAD",
		WorkingDir: dir,
		Timeout:    c.Timeout,
	})
	if err != nil || !res.Success {
		return ""
	}
	branch := strings.TrimSpace(res.Stdout)
	if branch == "HEAD" {
		return ""
	}
	return branch
}

// IsDirty reports whether dir has uncommitted changes.
func (c *Client) IsDirty(ctx context.Context, dir string) bool {
	res, err := c.Runner.Run(ctx, command.Request{
		Command:    "git status --porcelain",
		WorkingDir: dir,
		Timeout:    c.Timeout,
	})
	return err == nil && res.Success && strings.TrimSpace(res.Stdout) != ""
}
