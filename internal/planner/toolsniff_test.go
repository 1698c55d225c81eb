package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/ai"
)

func TestDetectTools_PatternMatch(t *testing.T) {
	tools := DetectTools(context.Background(), nil, "please commit and push with git", "unknown")
	require.Equal(t, []string{"git"}, tools)
}

func TestDetectTools_ProjectTypeFallback(t *testing.T) {
	tools := DetectTools(context.Background(), nil, "build the thing", "go")
	require.Equal(t, []string{"go"}, tools)
}

func TestDetectTools_AIFallbackWhenNoPatternMatches(t *testing.T) {
	fake := &ai.FakeCollaborator{Response: `["terraform", "aws"]`}
	tools := DetectTools(context.Background(), fake, "provision the thing", "unknown")
	require.Equal(t, []string{"terraform", "aws"}, tools)
	require.Len(t, fake.Prompts, 1)
}
