// Package recovery implements the Error-Recovery Manager (spec §4.6):
// error-signature extraction, strategy generation and ranking,
// auto-recovery, and Recovery History persistence.
package recovery

import (
	"regexp"
	"strings"
)

// pattern is one entry in the fixed error-signature table, ordered by
// precedence: the first matching pattern wins (spec §9's resolution of the
// original's two competing signature schemes).
type pattern struct {
	signature string
	re        *regexp.Regexp
}

// signatureTable mirrors the original's `_get_common_error_patterns`
// ordering and wording.
var signatureTable = []pattern{
	{"permission-denied", regexp.MustCompile(`(?i)permission denied|cannot access|operation not permitted`)},
	{"command-not-found", regexp.MustCompile(`(?i)command not found|not installed|no such file or directory`)},
	{"syntax-error", regexp.MustCompile(`(?i)syntax error|invalid option|unrecognized option`)},
	{"connection-refused", regexp.MustCompile(`(?i)cannot connect|connection refused|network is unreachable`)},
	{"disk-full", regexp.MustCompile(`(?i)disk quota exceeded|no space left on device|file system is full`)},
	{"resource-busy", regexp.MustCompile(`(?i)resource temporarily unavailable|resource busy|device or resource busy`)},
}

// ExtractSignature computes the error signature for a failed step, preferring
// stderr over a bare error message (spec §4.6 step 1).
func ExtractSignature(stderr, errMessage string) string {
	text := stderr
	if strings.TrimSpace(text) == "" {
		text = errMessage
	}
	for _, p := range signatureTable {
		if p.re.MatchString(text) {
			return p.signature
		}
	}
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	if len(firstLine) > 50 {
		firstLine = firstLine[:50]
	}
	if firstLine == "" {
		return "generic:unknown"
	}
	return "generic:" + firstLine
}
