package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/Azure/cmdpilot/internal/apperrors"
	"github.com/Azure/cmdpilot/internal/workflow"
)

// Manifest describes a workflow package's provenance (spec §6 "Workflow
// package format").
type Manifest struct {
	Name        string    `json:"name"`
	Author      string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	SchemaVersion int     `json:"schema_version"`
}

// Package is the single JSON document `workflows export`/`workflows import`
// read and write: a manifest plus the plan document it describes.
type Package struct {
	Manifest Manifest      `json:"manifest"`
	Plan     *workflow.Plan `json:"plan"`
}

// Export wraps plan in a Package with the current schema version.
func Export(plan *workflow.Plan, author string) *Package {
	return &Package{
		Manifest: Manifest{
			Name:          plan.Name,
			Author:        author,
			CreatedAt:     time.Now(),
			SchemaVersion: planSchemaVersion,
		},
		Plan: plan,
	}
}

// Marshal serialises a Package for `workflows export --output`.
func (p *Package) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Import parses a workflow package document, rejecting one whose
// schema-version is newer than this implementation understands (spec §6
// "Importing a package whose schema-version is newer... fails with
// SchemaTooNew").
func Import(raw []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "planner", "malformed workflow package", err)
	}
	supported, err := version.NewVersion(fmt.Sprintf("%d.0.0", planSchemaVersion))
	if err != nil {
		return nil, err
	}
	imported, err := version.NewVersion(fmt.Sprintf("%d.0.0", pkg.Manifest.SchemaVersion))
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "planner", "invalid schema_version", err)
	}
	if imported.GreaterThan(supported) {
		return nil, apperrors.New(apperrors.CodeSchemaTooNew, "planner",
			fmt.Sprintf("package schema version %d is newer than supported version %d", pkg.Manifest.SchemaVersion, planSchemaVersion), nil)
	}
	if pkg.Plan == nil {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "planner", "package has no plan document", nil)
	}
	return &pkg, nil
}
