package toolcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/toolforge/studio/llm"
)

// Argument schemas for the tool vocabulary, validated once at the
// accumulator boundary rather than scattered across call sites. The same
// schemas travel to the provider as tool definitions.

const addNodeSchemaJSON = `{
  "type": "object",
  "properties": {
    "id": { "type": "string", "minLength": 1, "description": "Unique node identifier (snake_case, e.g. pos_data, normalize_step)" },
    "label": { "type": "string", "description": "Short display label (2-4 words)" },
    "type": { "type": "string", "enum": ["source", "processor", "decision", "output", "ai"], "description": "Node type: source=data input, processor=transformation, decision=branching logic, output=final deliverable, ai=AI/ML step" },
    "icon": { "type": "string", "description": "Single emoji icon for the node" },
    "description": { "type": "string", "description": "Brief description of what this node does (one sentence)" }
  },
  "required": ["id", "label", "type"]
}`

const addConnectionSchemaJSON = `{
  "type": "object",
  "properties": {
    "from": { "type": "string", "minLength": 1, "description": "Source node id" },
    "to": { "type": "string", "minLength": 1, "description": "Target node id" },
    "label": { "type": "string", "description": "Optional label for the connection edge" }
  },
  "required": ["from", "to"]
}`

const updateStageSchemaJSON = `{
  "type": "object",
  "properties": {
    "stage": { "type": "string", "minLength": 1, "description": "The stage to transition to" },
    "commentary": { "type": "string", "description": "Short commentary about what was just mapped (shown on the diagram overlay)" }
  },
  "required": ["stage"]
}`

const extractContextSchemaJSON = `{
  "type": "object",
  "properties": {
    "role": { "type": "string", "description": "User's job title or role" },
    "department": { "type": "string", "description": "Department or team" },
    "company_context": { "type": "string", "description": "Brief company/industry context" },
    "desired_outcomes": { "type": "array", "items": { "type": "string" }, "description": "What the user wants to achieve" },
    "pain_points": { "type": "array", "items": { "type": "string" }, "description": "Current frustrations or inefficiencies" },
    "current_tools": { "type": "array", "items": { "type": "string" }, "description": "Tools/systems currently in use" }
  }
}`

const generateStateImageSchemaJSON = `{
  "type": "object",
  "properties": {
    "type": { "type": "string", "enum": ["current", "future"], "description": "Which state to illustrate" },
    "summary": { "type": "string", "description": "One-paragraph summary of the state" },
    "steps": { "type": "array", "items": { "type": "string" }, "description": "Ordered workflow steps" },
    "tools": { "type": "array", "items": { "type": "string" } },
    "pain_points": { "type": "array", "items": { "type": "string" } }
  },
  "required": ["type", "summary", "steps"]
}`

const requestValidationSchemaJSON = `{
  "type": "object",
  "properties": {
    "type": { "type": "string", "enum": ["current", "future", "compare"], "description": "Which validation surface to show" }
  },
  "required": ["type"]
}`

// toolSpec couples a compiled schema with a decoder for the typed call.
type toolSpec struct {
	description string
	rawSchema   string
	schema      *jsonschema.Schema
	decode      func(raw json.RawMessage) (Call, error)
}

var toolSpecs = map[string]*toolSpec{
	ToolAddWorkflowNode: {
		description: "Add a node to the workflow diagram being built. Call this when you identify a data source, processing step, decision point, or output in the user's workflow.",
		rawSchema:   addNodeSchemaJSON,
		decode:      decodeInto[AddWorkflowNode],
	},
	ToolAddWorkflowConnection: {
		description: "Connect two existing nodes in the workflow. Call this after adding nodes to show how data flows between them.",
		rawSchema:   addConnectionSchemaJSON,
		decode:      decodeInto[AddWorkflowConnection],
	},
	ToolUpdateInterviewStage: {
		description: "Move the interview to the next stage. Call this when you've gathered enough info for the current stage and are transitioning.",
		rawSchema:   updateStageSchemaJSON,
		decode:      decodeInto[UpdateInterviewStage],
	},
	ToolExtractUserContext: {
		description: "Extract and store structured user context from the conversation. Call this when you learn important details about the user.",
		rawSchema:   extractContextSchemaJSON,
		decode:      decodeInto[ExtractUserContext],
	},
	ToolGenerateStateImage: {
		description: "Generate an illustrative image of the user's current or future workflow state.",
		rawSchema:   generateStateImageSchemaJSON,
		decode:      decodeInto[GenerateStateImage],
	},
	ToolRequestValidation: {
		description: "Ask the user to validate the mapped workflow. Pure UI routing, no diagram effect.",
		rawSchema:   requestValidationSchemaJSON,
		decode:      decodeInto[RequestValidation],
	},
}

func decodeInto[T Call](raw json.RawMessage) (Call, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func init() {
	c := jsonschema.NewCompiler()
	for name, spec := range toolSpecs {
		url := fmt.Sprintf("https://toolforge.dev/schemas/%s.json", name)
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(spec.rawSchema))
		if err != nil {
			panic(fmt.Sprintf("toolcall: unmarshal schema for %s: %v", name, err))
		}
		if err := c.AddResource(url, doc); err != nil {
			panic(fmt.Sprintf("toolcall: add schema resource for %s: %v", name, err))
		}
		compiled, err := c.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("toolcall: compile schema for %s: %v", name, err))
		}
		spec.schema = compiled
	}
}

// Parse validates raw argument JSON against the named tool's schema and
// decodes it into the typed call. Unknown tool names and invalid
// arguments return an error; callers drop such calls without aborting
// the stream.
func Parse(name string, raw json.RawMessage) (Call, error) {
	spec, ok := toolSpecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s arguments: %w", name, err)
	}
	if err := spec.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate %s arguments: %w", name, err)
	}

	return spec.decode(raw)
}

// Definitions returns the tool vocabulary as provider tool definitions,
// in a stable order.
func Definitions() []llm.ToolDefinition {
	names := []string{
		ToolAddWorkflowNode,
		ToolAddWorkflowConnection,
		ToolUpdateInterviewStage,
		ToolExtractUserContext,
		ToolGenerateStateImage,
		ToolRequestValidation,
	}
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		spec := toolSpecs[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        name,
			Description: spec.description,
			InputSchema: json.RawMessage(spec.rawSchema),
		})
	}
	return defs
}
