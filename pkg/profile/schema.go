package profile

import (
	"encoding/json"

	"github.com/kaptinlin/jsonschema"

	"github.com/openquant/quorum/pkg/errors"
)

// defaultOutputSchema is the minimal contract every agent payload must
// satisfy: a sentiment vote, a confidence in [0,1], and a summary. Agents
// may emit additional keys; factors is conventional but optional.
const defaultOutputSchema = `{
	"type": "object",
	"required": ["sentiment", "confidence", "summary"],
	"properties": {
		"sentiment": {"type": "string", "enum": ["bullish", "bearish", "neutral"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"summary": {"type": "string"},
		"factors": {"type": "array", "items": {"type": "string"}}
	}
}`

// DefaultOutputSchema returns the compiled default payload schema.
func DefaultOutputSchema() *jsonschema.Schema {
	schema, err := CompileSchema([]byte(defaultOutputSchema))
	if err != nil {
		// The embedded schema is constant; failure here is a programming error.
		panic(err)
	}
	return schema
}

// CompileSchema compiles a raw JSON Schema document.
func CompileSchema(raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(raw)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid output schema", err)
	}
	return schema, nil
}

// CompileSchemaValue compiles a schema supplied as decoded YAML/JSON.
func CompileSchemaValue(value map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "output schema is not encodable", err)
	}
	return CompileSchema(raw)
}
