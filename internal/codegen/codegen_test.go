package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_PlainTemplate(t *testing.T) {
	e := New()
	out, err := e.Render("inline", `hello {{.Name | upper}}`, map[string]string{"Name": "world"})
	require.NoError(t, err)
	require.Equal(t, "hello WORLD", out)
}

func TestRenderToFile_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "step.tmpl")
	require.NoError(t, os.WriteFile(tmplPath, []byte(`{"id":"{{.ID}}","command":"{{.Command}}"}`), 0o644))

	e := New()
	outPath := filepath.Join(dir, "step.json")
	err := e.RenderToFile(tmplPath, outPath, map[string]string{"ID": "a", "Command": "echo hi"})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"id":"a"`)
}
