package tools

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// ToolFunc executes a tool against the raw JSON input the model supplied.
// A returned error is reported back to the caller as a failed result.
type ToolFunc func(ctx context.Context, input json.RawMessage) (string, error)

// ToolDefinition is a named capability with a fixed text-in/text-out contract.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    ToolFunc
}

// GenerateSchema derives an input schema from the exported fields of T.
// Fields without omitempty are required.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	out := anthropic.ToolInputSchemaParam{Required: schema.Required}
	if schema.Properties != nil && schema.Properties.Len() > 0 {
		out.Properties = schema.Properties
	} else {
		out.Properties = map[string]any{}
	}
	return out
}
