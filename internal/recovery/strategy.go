package recovery

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/Azure/cmdpilot/internal/ai"
)

// Kind is a Recovery Strategy's kind (spec §3).
type Kind string

const (
	Retry              Kind = "retry"
	ModifyCommand      Kind = "modify-command"
	AlternativeCommand Kind = "alternative-command"
	PrepareThenRetry   Kind = "prepare-environment-then-retry"
	RevertChanges      Kind = "revert-changes"
	Skip               Kind = "skip"
	Abort              Kind = "abort"
)

// Strategy is a candidate action to turn a failed step into a success
// (spec §3 "Recovery Strategy"). Generated per failure; not persisted as-is
// (Recovery History persists a reduced projection, see history.go).
type Strategy struct {
	Kind           Kind
	Command        string // empty for skip/abort
	Description    string
	Confidence     float64
	RetryOriginal  bool // prepare/alternative: re-run original command after this one succeeds
	Source         string
}

// candidateFromPatternFix builds the pattern-table strategies for a
// signature (spec §4.6 step 2), grounded on the original's per-pattern
// fixes list.
func candidateFromPatternFix(signature, command string) []Strategy {
	switch signature {
	case "permission-denied":
		if !strings.HasPrefix(strings.TrimSpace(command), "sudo ") {
			return []Strategy{{
				Kind: ModifyCommand, Command: "sudo " + command,
				Description: "prepend sudo for elevated privileges", Confidence: 0.7, Source: "pattern",
			}}
		}
	case "command-not-found":
		pkg := guessPackageName(command)
		if pkg != "" {
			return []Strategy{{
				Kind: PrepareThenRetry, Command: "apt-get install -y " + pkg,
				Description: "install missing package " + pkg + " and retry", Confidence: 0.6,
				RetryOriginal: true, Source: "pattern",
			}}
		}
	case "resource-busy":
		return []Strategy{{
			Kind: Retry, Command: command,
			Description: "resource was busy, retry once more", Confidence: 0.4, Source: "pattern",
		}}
	}

	if dir, ok := missingDirectory(command); ok {
		return []Strategy{{
			Kind: PrepareThenRetry, Command: "mkdir -p " + dir,
			Description: "create missing directory " + dir + " and retry", Confidence: 0.7,
			RetryOriginal: true, Source: "pattern",
		}}
	}
	return nil
}

var reFirstWord = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+)`)

func guessPackageName(command string) string {
	m := reFirstWord.FindStringSubmatch(command)
	if m == nil {
		return ""
	}
	return m[1]
}

var reRedirectPath = regexp.MustCompile(`>\s*([^\s]+/)[^/\s]+$`)

// missingDirectory looks for a redirect into a path whose parent directory
// appears to be the cause of a "no such file or directory" failure.
func missingDirectory(command string) (string, bool) {
	m := reRedirectPath.FindStringSubmatch(command)
	if m == nil {
		return "", false
	}
	return strings.TrimSuffix(m[1], "/"), true
}

// aiStrategy is the shape the AI collaborator is asked to return (spec §4.6
// step 2 "AI-generated suggestions").
type aiStrategy struct {
	Kind        string  `json:"kind"`
	Command     string  `json:"command"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// generateAIStrategies asks the AI collaborator for recovery suggestions and
// validates the returned JSON array, ignoring malformed entries rather than
// failing the whole recovery pass (the AI path is a fallback, not a
// requirement).
func generateAIStrategies(ctx context.Context, collaborator ai.Collaborator, command, errText string) []Strategy {
	if collaborator == nil {
		return nil
	}
	prompt := "The shell command `" + command + "` failed with:\n" + errText +
		"\nReply with a JSON array of recovery strategies, each an object with " +
		`"kind" (one of modify-command, alternative-command, prepare-environment-then-retry), ` +
		`"command", "description", and "confidence" (0 to 1).`

	text, err := collaborator.Generate(ctx, prompt, 512, 0.2)
	if err != nil {
		return nil
	}

	var raw []aiStrategy
	if json.Unmarshal([]byte(text), &raw) != nil {
		return nil
	}

	out := make([]Strategy, 0, len(raw))
	for _, r := range raw {
		k := Kind(r.Kind)
		switch k {
		case ModifyCommand, AlternativeCommand, PrepareThenRetry:
		default:
			continue
		}
		if r.Command == "" {
			continue
		}
		conf := r.Confidence
		if conf <= 0 || conf > 1 {
			conf = 0.5
		}
		out = append(out, Strategy{Kind: k, Command: r.Command, Description: r.Description, Confidence: conf, Source: "ai"})
	}
	return out
}

// generateStrategies builds the full candidate list for a failure (spec
// §4.6 step 2): pattern-table fixes, then AI suggestions as a fallback when
// the pattern table produced nothing, then the always-present retry/skip
// strategies, sorted by confidence descending.
func generateStrategies(ctx context.Context, collaborator ai.Collaborator, signature, command, errText string) []Strategy {
	strategies := candidateFromPatternFix(signature, command)
	if len(strategies) == 0 {
		strategies = append(strategies, generateAIStrategies(ctx, collaborator, command, errText)...)
	}

	hasRetry := false
	for _, s := range strategies {
		if s.Kind == Retry {
			hasRetry = true
			break
		}
	}
	if !hasRetry {
		strategies = append(strategies, Strategy{
			Kind: Retry, Command: command, Description: "retry the command without changes",
			Confidence: 0.3, Source: "fallback",
		})
	}
	strategies = append(strategies, Strategy{
		Kind: Skip, Description: "skip this step and continue with the plan",
		Confidence: 0.2, Source: "fallback",
	})

	sort.SliceStable(strategies, func(i, j int) bool { return strategies[i].Confidence > strategies[j].Confidence })
	return strategies
}
