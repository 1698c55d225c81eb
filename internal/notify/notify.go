// Package notify implements the fire-and-forget notification collaborator
// (spec §6): workflow completion and recovery events surfaced to the
// terminal without blocking execution.
package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// TerminalNotifier writes notifications to a writer (typically stderr),
// colorized by severity. It never returns an error to the caller that
// reflects a user-facing failure; Notify only fails if the write itself
// fails, which the workflow engine logs and otherwise ignores (spec §6:
// notification delivery never blocks or fails a workflow run).
type TerminalNotifier struct {
	Out io.Writer
}

// New builds a TerminalNotifier writing to stderr.
func New() *TerminalNotifier {
	return &TerminalNotifier{Out: os.Stderr}
}

func severityColor(severity string) *color.Color {
	switch severity {
	case "error", "critical":
		return color.New(color.FgRed, color.Bold)
	case "warn", "warning":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// Notify renders title/body to Out, prefixed with a colorized severity tag.
func (n *TerminalNotifier) Notify(title, body, severity string) error {
	out := n.Out
	if out == nil {
		out = os.Stderr
	}
	tag := severityColor(severity).Sprintf("[%s]", severity)
	_, err := fmt.Fprintf(out, "%s %s: %s\n", tag, title, body)
	return err
}
