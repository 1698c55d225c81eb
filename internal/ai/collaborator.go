// Package ai implements the AI text-generation collaborator contract
// (spec §6): one operation, generate(prompt, max-tokens, temperature) ->
// text, backed by Azure OpenAI.
package ai

import (
	"context"
	"time"

	"github.com/Azure/cmdpilot/internal/apperrors"
)

// callTimeout bounds every AI call (spec §6: "Latency is bounded at 60
// seconds per call").
const callTimeout = 60 * time.Second

// Collaborator is the AI text-generation contract consumed by the Plan
// Generator and the Error-Recovery Manager.
type Collaborator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// withCallTimeout bounds ctx to callTimeout unless ctx already carries a
// tighter deadline.
func withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < callTimeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, callTimeout)
}

// unavailable wraps a transport-level failure as AIUnavailable (spec §6/§7).
func unavailable(cause error) error {
	return apperrors.New(apperrors.CodeAIUnavailable, "ai", "AI collaborator call failed", cause)
}

// malformed wraps an unusable response body as AIMalformed (spec §6/§7).
func malformed(cause error) error {
	return apperrors.New(apperrors.CodeAIMalformed, "ai", "AI collaborator returned an unusable response", cause)
}
