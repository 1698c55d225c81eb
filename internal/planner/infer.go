package planner

import "regexp"

// reJQField matches a jq filter selecting a single top-level field, e.g.
// `jq -r .foo` or `jq '.bar'`, capturing the field name.
var reJQField = regexp.MustCompile(`\bjq\b[^|]*?\.([A-Za-z_][A-Za-z0-9_]*)\b`)

// inferProducedVariable implements spec §4.7 step 5: parsing a command for
// pipeline patterns that imply a produced variable, e.g. a trailing
// `| jq -r .foo` implies the step produces a variable named foo. Returns ""
// if no pattern matches.
func inferProducedVariable(command string) string {
	m := reJQField.FindStringSubmatch(command)
	if m == nil {
		return ""
	}
	return m[1]
}
