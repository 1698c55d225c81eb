package workflow

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Azure/cmdpilot/internal/apperrors"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/vars"
)

// predicate grammar (spec §4.5):
//   ${var} == literal   /   ${var} != literal
//   'substring' in ${var}
//   file exists PATH
//   command CMD succeeds
//   bare boolean token: true/false/yes/no/1/0
var (
	reEquality  = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}\s*(==|!=)\s*(.*)$`)
	reSubstring = regexp.MustCompile(`^'([^']*)'\s+in\s+\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)
	reFileCheck = regexp.MustCompile(`^file\s+exists\s+(.+)$`)
	reCmdCheck  = regexp.MustCompile(`^command\s+(.+)\s+succeeds$`)
	reBoolean   = regexp.MustCompile(`(?i)^(true|false|yes|no|1|0)$`)
)

// EvaluatePredicate evaluates a §4.5 predicate string against vars,
// substituting variables first. It returns whether evaluation itself
// succeeded (the predicate was well-formed and, for "command ... succeeds",
// the runner could be invoked at all) and the predicate's truthiness.
func EvaluatePredicate(ctx context.Context, runner command.Execer, store *vars.Store, predicate string) (ok bool, truthy bool, err error) {
	raw := strings.TrimSpace(predicate)

	if m := reEquality.FindStringSubmatch(raw); m != nil {
		name, op, literal := m[1], m[2], strings.TrimSpace(m[3])
		val, _ := store.Get(name)
		literal = strings.Trim(literal, `"'`)
		eq := val == literal
		if op == "!=" {
			eq = !eq
		}
		return true, eq, nil
	}

	if m := reSubstring.FindStringSubmatch(raw); m != nil {
		needle, name := m[1], m[2]
		val, _ := store.Get(name)
		return true, strings.Contains(val, needle), nil
	}

	if m := reFileCheck.FindStringSubmatch(raw); m != nil {
		path := store.Substitute(strings.TrimSpace(m[1]))
		_, statErr := os.Stat(path)
		return true, statErr == nil, nil
	}

	if m := reCmdCheck.FindStringSubmatch(raw); m != nil {
		cmdText := store.Substitute(strings.TrimSpace(m[1]))
		res, runErr := runner.Run(ctx, command.Request{Command: cmdText})
		if runErr != nil && res.ExitCode == 0 && !res.Success {
			// spawn-level failure (binary missing, etc.) still counts as "did
			// not succeed", not as a malformed predicate.
			return true, false, nil
		}
		return true, res.Success, nil
	}

	if reBoolean.MatchString(raw) {
		return true, parseBoolToken(raw), nil
	}

	return false, false, apperrors.New(apperrors.CodeMalformedPredicate, "workflow",
		"predicate does not match any known grammar form: "+predicate, nil)
}

func parseBoolToken(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "1":
		return true
	default:
		b, _ := strconv.ParseBool(strings.ToLower(s))
		return b
	}
}
