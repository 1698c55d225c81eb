package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildContextSnapshot_DetectsProjectRootAndType(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	sub := filepath.Join(root, "cmd")
	require.NoError(t, os.Mkdir(sub, 0o755))

	snapshot := BuildContextSnapshot(sub)
	require.Equal(t, root, snapshot.ProjectRoot)
	require.Equal(t, "go", snapshot.ProjectType)
	require.Contains(t, snapshot.FileListing, "go.mod")
	require.Contains(t, snapshot.FileListing, "main.go")
}

func TestBuildContextSnapshot_NoVCSRootFallsBackToCwd(t *testing.T) {
	root := t.TempDir()
	snapshot := BuildContextSnapshot(root)
	require.Equal(t, root, snapshot.ProjectRoot)
	require.Equal(t, "unknown", snapshot.ProjectType)
}
