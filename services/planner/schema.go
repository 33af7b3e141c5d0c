package planner

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	draftSchemaURL = "schema://plan-draft.json"
	draftSchema    = `{
  "type": "object",
  "required": ["title", "milestones"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "category": {"type": "string"},
    "difficulty": {"type": "string"},
    "tech_stack": {
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}},
        {"type": "null"}
      ]
    },
    "milestones": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["steps"],
        "properties": {
          "milestone_title": {"type": "string"},
          "title": {"type": "string"},
          "steps": {"type": "array"}
        }
      }
    }
  }
}`
)

var (
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
	compileSchemaOnce sync.Once
)

func getDraftSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		var doc interface{}
		if err := json.Unmarshal([]byte(draftSchema), &doc); err != nil {
			compiledSchemaErr = errors.Wrap(err, "parsing draft schema")
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(draftSchemaURL, doc); err != nil {
			compiledSchemaErr = errors.Wrap(err, "adding draft schema")
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(draftSchemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// validateDraft checks the shape of the generator output before it is decoded.
func validateDraft(content []byte) error {
	var doc interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return errors.Wrap(err, "invalid JSON")
	}
	schema, err := getDraftSchema()
	if err != nil {
		return err
	}
	if err = schema.Validate(doc); err != nil {
		return errors.Wrap(err, "unexpected plan shape")
	}
	return nil
}
