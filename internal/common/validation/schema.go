// Package validation checks inbound API payloads against JSON schemas
// before they reach the engine.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// QueryRequestSchema is the contract for POST /api/query bodies.
const QueryRequestSchema = `{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"maxLength": 2000
		},
		"category_hint": {
			"type": "string",
			"enum": [
				"weather",
				"air_quality",
				"astronomy_live",
				"space_agency",
				"asteroid_tracking",
				"regional_geospatial",
				"general"
			]
		},
		"allow_live_providers": {
			"type": "boolean"
		},
		"max_semantic_results": {
			"type": "integer",
			"minimum": 1,
			"maximum": 20
		}
	},
	"required": ["query"],
	"additionalProperties": false
}`

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidateQueryRequest validates a raw JSON body against QueryRequestSchema.
func ValidateQueryRequest(body []byte) (*Result, error) {
	return validate(body, QueryRequestSchema)
}

func validate(body []byte, schema string) (*Result, error) {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	res, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed to run: %w", err)
	}

	out := &Result{Valid: res.Valid()}
	for _, e := range res.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return out, nil
}
