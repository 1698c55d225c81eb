// Package approval implements the user-approval collaborator (spec §6): an
// interactive terminal prompt satisfying both workflow.Approver and
// recovery.Approver, plus a non-interactive bypass for trusted automation.
package approval

import (
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/Azure/cmdpilot/internal/safety"
)

// Prompter is an interactive CLI approval gate. AutoApprove bypasses the
// prompt entirely for risk levels at or below Low, mirroring the `--yes`
// flag's documented scope (spec §6: the bypass never covers Medium+).
type Prompter struct {
	AutoApprove bool
	Out         io.Writer
}

// New builds a Prompter that keeps out in its Out field. Confirm does not
// write to Out: promptui renders the selector on its own default output.
func New(autoApprove bool, out io.Writer) *Prompter {
	return &Prompter{AutoApprove: autoApprove, Out: out}
}

// Confirm satisfies workflow.Approver and recovery.Approver. For risk levels
// at or below Low, AutoApprove short-circuits to the first option (by
// convention the "proceed" choice) without prompting. Otherwise it renders an
// interactive selector listing options verbatim.
func (p *Prompter) Confirm(prompt string, risk safety.Level, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("approval: no options offered for %q", prompt)
	}
	if p.AutoApprove && risk <= safety.Low {
		return options[0], nil
	}

	label := fmt.Sprintf("[%s] %s", risk, prompt)
	sel := promptui.Select{
		Label: label,
		Items: options,
	}
	_, choice, err := sel.Run()
	if err != nil {
		return "", fmt.Errorf("approval: prompt failed: %w", err)
	}
	return choice, nil
}
