// Package validation checks worker job payloads against the JSON schemas
// registered in the activity registry before a handler runs.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Result reports the outcome of a payload validation.
type Result struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors,omitempty"`
}

// Error describes one schema violation.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidatePayload validates raw JSON job variables against a schema given as
// a generic map (the form the activity registry stores schemas in). A nil or
// empty schema means the task has no registered contract and passes.
func ValidatePayload(schema map[string]interface{}, payload []byte) (*Result, error) {
	if len(schema) == 0 {
		return &Result{Valid: true}, nil
	}
	return validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(payload))
}

// ValidateObject validates an already-decoded payload.
func ValidateObject(schema map[string]interface{}, payload map[string]interface{}) (*Result, error) {
	if len(schema) == 0 {
		return &Result{Valid: true}, nil
	}
	return validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(payload))
}

func validate(schemaLoader, documentLoader gojsonschema.JSONLoader) (*Result, error) {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &Result{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, Error{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return out, nil
}

// Summary flattens validation errors into one line for error details.
func (r *Result) Summary() string {
	if r.Valid {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}
