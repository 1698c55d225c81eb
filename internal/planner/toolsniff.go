package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Azure/cmdpilot/internal/ai"
)

// knownToolPatterns maps a regexp over the request text to the CLI tool it
// implies, checked before falling back to an AI call (spec §4.7 step 1).
var knownToolPatterns = []struct {
	re   *regexp.Regexp
	tool string
}{
	{regexp.MustCompile(`(?i)\bdocker\b`), "docker"},
	{regexp.MustCompile(`(?i)\bkubectl\b|\bkubernetes\b|\bk8s\b`), "kubectl"},
	{regexp.MustCompile(`(?i)\bgit\b|\bcommit\b|\bbranch\b|\brebase\b`), "git"},
	{regexp.MustCompile(`(?i)\bnpm\b|\bnode\b|\byarn\b`), "npm"},
	{regexp.MustCompile(`(?i)\bgo build\b|\bgo test\b|\bgo mod\b`), "go"},
	{regexp.MustCompile(`(?i)\bpip\b|\bpython\b|\bvenv\b`), "python3"},
	{regexp.MustCompile(`(?i)\bcargo\b|\brust\b`), "cargo"},
	{regexp.MustCompile(`(?i)\bterraform\b`), "terraform"},
	{regexp.MustCompile(`(?i)\bcurl\b|\bhttp\b`), "curl"},
	{regexp.MustCompile(`(?i)\bjq\b`), "jq"},
}

// projectTypeTools names the tool implied by a detected project type when
// the request itself mentions no tool explicitly.
var projectTypeTools = map[string]string{
	"go":     "go",
	"node":   "npm",
	"python": "python3",
	"rust":   "cargo",
	"java":   "mvn",
	"ruby":   "bundle",
	"docker": "docker",
}

const toolDetectPrompt = `Given this user request, reply with ONLY a JSON array of CLI tool names ` +
	`needed to carry it out, most important first. No prose, no markdown.

Request: %s
Project type: %s`

// DetectTools implements spec §4.7 step 1: pattern matching over the request
// and project type, falling back to an AI call when nothing matches.
func DetectTools(ctx context.Context, collaborator ai.Collaborator, request, projectType string) []string {
	var tools []string
	seen := map[string]bool{}
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tools = append(tools, t)
		}
	}

	for _, p := range knownToolPatterns {
		if p.re.MatchString(request) {
			add(p.tool)
		}
	}
	if len(tools) == 0 {
		add(projectTypeTools[projectType])
	}
	if len(tools) > 0 || collaborator == nil {
		return tools
	}

	raw, err := collaborator.Generate(ctx, fmt.Sprintf(toolDetectPrompt, request, projectType), 128, 0.0)
	if err != nil {
		return nil
	}
	var fromAI []string
	if err := json.Unmarshal([]byte(extractJSONCandidate(raw)), &fromAI); err != nil {
		return nil
	}
	for _, t := range fromAI {
		add(strings.TrimSpace(t))
	}
	return tools
}
