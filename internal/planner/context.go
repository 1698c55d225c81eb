// Package planner implements the Plan Generator (spec §4.7): tool
// detection, context snapshot assembly, an AI-backed plan draft, schema
// validation with repair, and produced-variable inference.
package planner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/workflow"
	"github.com/Azure/cmdpilot/pkg/common/filesystem"
)

// contextListingOptions caps the file listing embedded in a context snapshot
// to a couple of levels deep: the prompt needs enough to recognise the
// project's shape, not a full recursive tree (spec §3 "never the whole
// context").
func contextListingOptions() filesystem.FileTreeOptions {
	opts := filesystem.DefaultFileTreeOptions()
	opts.MaxDepth = 2
	return opts
}

// probeTimeout bounds a tool capability probe; a hung --version/--help call
// must not stall plan generation.
const probeTimeout = 5 * time.Second

// projectMarkers maps a file that, if present at a candidate root, identifies
// the project type. Checked in declaration order so more specific markers
// (go.mod) are not shadowed by looser ones.
var projectMarkers = []struct {
	file string
	kind string
}{
	{"go.mod", "go"},
	{"package.json", "node"},
	{"requirements.txt", "python"},
	{"pyproject.toml", "python"},
	{"Cargo.toml", "rust"},
	{"pom.xml", "java"},
	{"build.gradle", "java"},
	{"Gemfile", "ruby"},
	{"Dockerfile", "docker"},
}

// BuildContextSnapshot walks upward from cwd to the nearest directory holding
// .git (cwd itself when there is none), takes the project type from the
// first recognised marker found in that root, and lists the root's files
// with the gitignore-aware walk: "never the whole context, only a filtered
// copy" (spec §3).
func BuildContextSnapshot(cwd string) workflow.ContextSnapshot {
	root := findProjectRoot(cwd)
	listing, err := filesystem.ListFiles(root, contextListingOptions())
	if err != nil {
		listing = nil // an unreadable root still yields a usable (file-less) snapshot
	}
	return workflow.ContextSnapshot{
		Cwd:         cwd,
		ProjectRoot: root,
		ProjectType: detectProjectType(root),
		FileListing: listing,
	}
}

func findProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start // no VCS root found; fall back to cwd
		}
		dir = parent
	}
}

func detectProjectType(root string) string {
	for _, m := range projectMarkers {
		if _, err := os.Stat(filepath.Join(root, m.file)); err == nil {
			return m.kind
		}
	}
	return "unknown"
}

// CapabilityCache memoizes tool capability probes: invoking --version/--help
// for every plan is wasteful when the same tool set recurs across requests.
type CapabilityCache struct {
	mu    sync.Mutex
	cache map[string]string
}

// NewCapabilityCache builds an empty cache.
func NewCapabilityCache() *CapabilityCache {
	return &CapabilityCache{cache: map[string]string{}}
}

// Describe returns a one-line capability description for tool, probing
// `tool --version` then `tool --help` through runner on a cache miss. A
// probe failure yields an empty description rather than an error, since the
// request itself may concern a tool not installed locally.
func (c *CapabilityCache) Describe(ctx context.Context, runner command.Execer, tool string) string {
	c.mu.Lock()
	if desc, ok := c.cache[tool]; ok {
		c.mu.Unlock()
		return desc
	}
	c.mu.Unlock()

	desc := firstLine(probe(ctx, runner, tool, "--version"))
	if desc == "" {
		desc = firstLine(probe(ctx, runner, tool, "--help"))
	}

	c.mu.Lock()
	c.cache[tool] = desc
	c.mu.Unlock()
	return desc
}

func probe(ctx context.Context, runner command.Execer, tool, flag string) string {
	res, _ := runner.Run(ctx, command.Request{Command: tool + " " + flag, Timeout: probeTimeout})
	if res.Stdout == "" && res.Stderr == "" {
		return ""
	}
	if res.Stdout != "" {
		return res.Stdout
	}
	return res.Stderr
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
