// Package codegen implements the `generate` subcommand's code generation
// (spec §1: explicitly out of core, offered as a thin convenience). It
// renders a user-supplied text/template file against arbitrary data,
// following the teacher's template-driven-artifact idiom (manifest.go)
// reduced from Kubernetes manifests to a generic template engine.
package codegen

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders templates with sprig's function set available.
type Engine struct {
	funcs template.FuncMap
}

// New builds an Engine with sprig's text function map loaded.
func New() *Engine {
	return &Engine{funcs: sprig.TxtFuncMap()}
}

// RenderFile reads the template at templatePath and executes it against
// data, returning the rendered text.
func (e *Engine) RenderFile(templatePath string, data any) (string, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("codegen: reading template %s: %w", templatePath, err)
	}
	return e.Render(templatePath, string(raw), data)
}

// Render executes the named template body against data.
func (e *Engine) Render(name, body string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(e.funcs).Parse(body)
	if err != nil {
		return "", fmt.Errorf("codegen: parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("codegen: executing template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderToFile renders templatePath against data and writes the result to
// outPath, creating parent directories as needed.
func (e *Engine) RenderToFile(templatePath, outPath string, data any) error {
	rendered, err := e.RenderFile(templatePath, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("codegen: writing %s: %w", outPath, err)
	}
	return nil
}
