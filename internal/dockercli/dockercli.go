// Package dockercli is a thin wrapper over the docker CLI binary (spec §1:
// explicitly out of core, offered as a convenience subcommand). It shells
// out through the Command Runner rather than a client library, following
// the teacher's docker.go idiom of invoking the docker executable directly.
package dockercli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/cmdpilot/internal/command"
)

// Client wraps a Command Runner with docker-specific convenience methods.
type Client struct {
	Runner  command.Execer
	Timeout time.Duration
}

// New builds a Client with a default per-invocation timeout.
func New(runner command.Execer) *Client {
	return &Client{Runner: runner, Timeout: 2 * time.Minute}
}

// Info reports whether the docker daemon is reachable, mirroring the
// teacher's checkDockerRunning gate before any build/push attempt.
func (c *Client) Info(ctx context.Context) error {
	res, err := c.Runner.Run(ctx, command.Request{Command: "docker info", Timeout: c.Timeout})
	if err != nil || !res.Success {
		return fmt.Errorf("docker daemon not reachable: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Build runs `docker build` against dockerfilePath in contextDir, tagging
// the result. It returns the combined output for error reporting.
func (c *Client) Build(ctx context.Context, dockerfilePath, tag, contextDir string) (string, error) {
	cmd := fmt.Sprintf("docker build -f %s -t %s %s", shellQuote(dockerfilePath), shellQuote(tag), shellQuote(contextDir))
	res, err := c.Runner.Run(ctx, command.Request{Command: cmd, Timeout: c.Timeout})
	output := res.Stdout + res.Stderr
	if err != nil || !res.Success {
		return output, fmt.Errorf("docker build failed: %s", strings.TrimSpace(output))
	}
	return output, nil
}

// Push runs `docker push` for tag.
func (c *Client) Push(ctx context.Context, tag string) (string, error) {
	res, err := c.Runner.Run(ctx, command.Request{Command: "docker push " + shellQuote(tag), Timeout: c.Timeout})
	output := res.Stdout + res.Stderr
	if err != nil || !res.Success {
		return output, fmt.Errorf("docker push failed: %s", strings.TrimSpace(output))
	}
	return output, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
