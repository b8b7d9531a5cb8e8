package aiprovider

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Structured-output JSON schemas validated before a real provider's
// response crosses the capability boundary. A payload that fails
// validation surfaces as ai_malformed rather than leaking partial
// fields downstream.
const verdictSchemaJSON = `{
  "type": "object",
  "required": ["kind", "game"],
  "properties": {
    "kind": {"type": "string", "enum": ["source_material", "novel"]},
    "game": {"type": "string"},
    "edition": {"type": "string"},
    "book": {"type": "string"},
    "book_title": {"type": "string"},
    "publisher": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "rationale": {"type": "string"}
  }
}`

const categorySchemaJSON = `{
  "type": "object",
  "required": ["category", "confidence"],
  "properties": {
    "category": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "rationale": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	verdictSchema  *jsonschema.Schema
	categorySchema *jsonschema.Schema
	schemaErr      error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", strings.NewReader(verdictSchemaJSON)); err != nil {
		schemaErr = err
		return
	}
	if err := compiler.AddResource("category.json", strings.NewReader(categorySchemaJSON)); err != nil {
		schemaErr = err
		return
	}
	verdictSchema, schemaErr = compiler.Compile("verdict.json")
	if schemaErr != nil {
		return
	}
	categorySchema, schemaErr = compiler.Compile("category.json")
}

// validateJSON decodes raw into a generic instance and validates it
// against the named schema ("verdict" or "category"), returning a
// wrapped error suitable for mapping to ai_malformed by the caller.
func validateJSON(kind string, raw []byte) (map[string]any, error) {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return nil, fmt.Errorf("aiprovider: schema compilation failed: %w", schemaErr)
	}

	var instance map[string]any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("aiprovider: invalid JSON: %w", err)
	}

	var schema *jsonschema.Schema
	switch kind {
	case "verdict":
		schema = verdictSchema
	case "category":
		schema = categorySchema
	default:
		return nil, fmt.Errorf("aiprovider: unknown schema kind %q", kind)
	}

	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("aiprovider: schema validation failed: %w", err)
	}
	return instance, nil
}
