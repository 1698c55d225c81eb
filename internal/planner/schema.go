package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// planSchemaVersion is the schema-version this implementation understands;
// bumped whenever the draft JSON shape changes in an incompatible way (spec
// §6 "workflows export/import").
const planSchemaVersion = 1

// planSchemaJSON is the JSON Schema the AI collaborator's response is checked
// against (spec §4.7 step 3, §3 data model). A response that fails the check
// is still parsed and goes on to structural repair; imported workflow
// packages are not checked against it.
const planSchemaJSON = `{
  "type": "object",
  "required": ["steps"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string"},
    "description": {"type": "string"},
    "entry_points": {"type": "array", "items": {"type": "string"}},
    "initial_variables": {"type": "object"},
    "data_flows": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source_step_id", "source_variable", "target_variable"],
        "properties": {
          "source_step_id": {"type": "string"},
          "source_variable": {"type": "string"},
          "target_variable": {"type": "string"},
          "transform": {"type": "string"}
        }
      }
    },
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "kind"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "kind": {
            "type": "string",
            "enum": ["command", "tool", "api", "decision", "wait", "parallel", "custom_code", "notification", "validation"]
          },
          "command": {"type": "string"},
          "url": {"type": "string"},
          "method": {"type": "string"},
          "predicate": {"type": "string"},
          "predecessors": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["step_id"],
              "properties": {
                "step_id": {"type": "string"},
                "required_status": {"type": "string", "enum": ["succeeded", "completed", "failed"]}
              }
            }
          },
          "required_variables": {"type": "array", "items": {"type": "string"}},
          "produced_variables": {"type": "array", "items": {"type": "string"}},
          "continue_on_failure": {"type": "boolean"},
          "estimated_risk": {"type": "string"}
        }
      }
    }
  }
}`

var compiledPlanSchema = mustCompilePlanSchema()

func mustCompilePlanSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("plan.json", strings.NewReader(planSchemaJSON)); err != nil {
		panic(fmt.Sprintf("planner: invalid embedded plan schema: %v", err))
	}
	schema, err := compiler.Compile("plan.json")
	if err != nil {
		panic(fmt.Sprintf("planner: plan schema compilation failed: %v", err))
	}
	return schema
}

// validateAgainstSchema checks raw JSON against the Plan schema.
func validateAgainstSchema(raw []byte) error {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return compiledPlanSchema.Validate(data)
}
