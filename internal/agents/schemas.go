package agents

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Stage outputs are checked against these schemas before decoding; an
// invalid document triggers the stage's fallback default instead of a hard
// error.

const coderOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "files_to_create": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "path": { "type": "string", "minLength": 1 },
          "content": { "type": "string" },
          "language": { "type": "string" },
          "action": { "type": "string", "enum": ["create", "update", "delete"] }
        },
        "required": ["path", "content"]
      }
    },
    "files_to_update": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "path": { "type": "string", "minLength": 1 },
          "content": { "type": "string" },
          "language": { "type": "string" },
          "action": { "type": "string", "enum": ["create", "update", "delete"] }
        },
        "required": ["path", "content"]
      }
    }
  }
}`

const testerOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "passed": { "type": "boolean" },
    "errors": {
      "type": "array",
      "items": { "type": "string" }
    }
  },
  "required": ["passed"]
}`

func validateSchema(schema, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("validate stage output: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	return fmt.Errorf("stage output schema validation failed: %s", strings.Join(errs, "; "))
}
