package planner

import "strings"

// extractJSONCandidate pulls a balanced JSON object or array out of text that
// may carry surrounding prose or markdown fences, mirroring the teacher's
// mixed-content AI response handling.
func extractJSONCandidate(s string) string {
	text := stripCodeFences(strings.TrimSpace(s))

	start := -1
	var openDelim, closeDelim rune
	if idx := strings.IndexByte(text, '{'); idx >= 0 {
		start, openDelim, closeDelim = idx, '{', '}'
	}
	if idx := strings.IndexByte(text, '['); idx >= 0 && (start == -1 || idx < start) {
		start, openDelim, closeDelim = idx, '[', ']'
	}
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := rune(text[i])
		if ch == '"' && !escaped {
			inString = !inString
		}
		if ch == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		if inString {
			continue
		}
		switch ch {
		case openDelim:
			depth++
		case closeDelim:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	start := strings.Index(s, "```")
	afterFence := start + 3
	if rest := s[afterFence:]; len(rest) > 0 {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && nl < 20 {
			afterFence += nl + 1 // skip a language tag on the fence's own line
		}
	}
	if end := strings.Index(s[afterFence:], "```"); end >= 0 {
		return strings.TrimSpace(s[afterFence : afterFence+end])
	}
	return strings.TrimSpace(s[afterFence:])
}
