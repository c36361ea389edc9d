package llm

import "encoding/json"

// ToolDefinition describes one named tool exposed to the model: its
// JSON Schema argument shape travels verbatim in the provider request.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}
