// Package toolcall reassembles fragmented tool-call arguments from the
// event stream and dispatches them as typed, schema-validated calls.
package toolcall

// Tool names in the model-facing vocabulary.
const (
	ToolAddWorkflowNode       = "add_workflow_node"
	ToolAddWorkflowConnection = "add_workflow_connection"
	ToolUpdateInterviewStage  = "update_interview_stage"
	ToolExtractUserContext    = "extract_user_context"
	ToolGenerateStateImage    = "generate_state_image"
	ToolRequestValidation     = "request_validation"
)

// Call is one complete, validated tool invocation. Concrete types form a
// closed set; dispatchers switch on the concrete type.
type Call interface {
	// Tool returns the vocabulary name of the call.
	Tool() string
}

// AddWorkflowNode adds a node to the workflow diagram.
type AddWorkflowNode struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

func (AddWorkflowNode) Tool() string { return ToolAddWorkflowNode }

// AddWorkflowConnection connects two nodes by id. Endpoints may not exist
// yet; referential integrity is resolved lazily by the diagram model.
type AddWorkflowConnection struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

func (AddWorkflowConnection) Tool() string { return ToolAddWorkflowConnection }

// UpdateInterviewStage moves the interview to a new stage, optionally
// with commentary for the diagram overlay.
type UpdateInterviewStage struct {
	Stage      string `json:"stage"`
	Commentary string `json:"commentary,omitempty"`
}

func (UpdateInterviewStage) Tool() string { return ToolUpdateInterviewStage }

// ExtractUserContext merges learned facts into the user profile. Nil
// pointers and nil slices mean "not mentioned this turn"; present slices
// overwrite wholesale.
type ExtractUserContext struct {
	Role            *string  `json:"role"`
	Department      *string  `json:"department"`
	CompanyContext  *string  `json:"company_context"`
	DesiredOutcomes []string `json:"desired_outcomes"`
	PainPoints      []string `json:"pain_points"`
	CurrentTools    []string `json:"current_tools"`
}

func (ExtractUserContext) Tool() string { return ToolExtractUserContext }

// GenerateStateImage requests an illustrative image of the current or
// future state from the image-generation collaborator.
type GenerateStateImage struct {
	Type       string   `json:"type"` // "current" or "future"
	Summary    string   `json:"summary"`
	Steps      []string `json:"steps"`
	Tools      []string `json:"tools,omitempty"`
	PainPoints []string `json:"pain_points,omitempty"`
}

func (GenerateStateImage) Tool() string { return ToolGenerateStateImage }

// RequestValidation signals the UI to show a validation surface. It has
// no diagram effect.
type RequestValidation struct {
	Type string `json:"type"` // "current", "future", or "compare"
}

func (RequestValidation) Tool() string { return ToolRequestValidation }
