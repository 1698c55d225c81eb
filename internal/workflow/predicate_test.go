package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/vars"
)

func TestEvaluatePredicate_Equality(t *testing.T) {
	store := vars.New(map[string]string{"STATUS": "ready"})
	runner := &command.FakeRunner{}

	ok, truthy, err := EvaluatePredicate(context.Background(), runner, store, "${STATUS} == ready")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, truthy)

	_, truthy, err = EvaluatePredicate(context.Background(), runner, store, "${STATUS} != ready")
	require.NoError(t, err)
	require.False(t, truthy)
}

func TestEvaluatePredicate_Substring(t *testing.T) {
	store := vars.New(map[string]string{"LOG": "build succeeded with warnings"})
	runner := &command.FakeRunner{}

	_, truthy, err := EvaluatePredicate(context.Background(), runner, store, "'succeeded' in ${LOG}")
	require.NoError(t, err)
	require.True(t, truthy)
}

func TestEvaluatePredicate_FileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marker")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store := vars.New(nil)
	runner := &command.FakeRunner{}

	_, truthy, err := EvaluatePredicate(context.Background(), runner, store, "file exists "+path)
	require.NoError(t, err)
	require.True(t, truthy)

	_, truthy, err = EvaluatePredicate(context.Background(), runner, store, "file exists "+path+".missing")
	require.NoError(t, err)
	require.False(t, truthy)
}

func TestEvaluatePredicate_CommandSucceeds(t *testing.T) {
	store := vars.New(nil)
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"true": {Success: true, ExitCode: 0},
	}}

	_, truthy, err := EvaluatePredicate(context.Background(), runner, store, "command true succeeds")
	require.NoError(t, err)
	require.True(t, truthy)
}

func TestEvaluatePredicate_BareBoolean(t *testing.T) {
	store := vars.New(nil)
	runner := &command.FakeRunner{}

	for lit, want := range map[string]bool{"true": true, "false": false, "yes": true, "no": false, "1": true, "0": false} {
		_, truthy, err := EvaluatePredicate(context.Background(), runner, store, lit)
		require.NoError(t, err)
		require.Equal(t, want, truthy, lit)
	}
}

func TestEvaluatePredicate_Malformed(t *testing.T) {
	store := vars.New(nil)
	runner := &command.FakeRunner{}

	_, _, err := EvaluatePredicate(context.Background(), runner, store, "this is not a predicate")
	require.Error(t, err)
}
