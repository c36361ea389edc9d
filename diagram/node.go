// Package diagram holds the authoritative in-memory workflow graph: node
// and connection entities, deterministic layout, and the two-phase
// create-hidden / reveal-after-delay lifecycle that drives the staged
// build-up animation.
package diagram

// NodeType classifies a workflow node and determines its icon fallback
// and horizontal layout column.
type NodeType string

// The closed set of node types.
const (
	NodeSource    NodeType = "source"
	NodeProcessor NodeType = "processor"
	NodeDecision  NodeType = "decision"
	NodeOutput    NodeType = "output"
	NodeAI        NodeType = "ai"
)

// KnownNodeType reports whether t is in the closed set.
func KnownNodeType(t NodeType) bool {
	switch t {
	case NodeSource, NodeProcessor, NodeDecision, NodeOutput, NodeAI:
		return true
	}
	return false
}

// fallbackIcons supply a glyph when the model omits one.
var fallbackIcons = map[NodeType]string{
	NodeSource:    "🗄️",
	NodeProcessor: "⚙️",
	NodeDecision:  "⚖️",
	NodeOutput:    "📤",
	NodeAI:        "✨",
}

// Node is one workflow diagram node. Coordinates are percentages of the
// canvas (0-100), assigned once at creation and mutated only by explicit
// position updates.
type Node struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Type        NodeType `json:"type"`
	Icon        string   `json:"icon,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`

	// Revealed is false at creation and flipped true after a short delay.
	// Consumers must filter on it; a node never appears before its
	// creation event is fully processed.
	Revealed bool `json:"is_revealed"`
}

// Connection is a directed edge between two node ids. Endpoints may
// reference nodes that do not exist yet; renderers simply do not draw
// the edge until both endpoints exist and are revealed.
type Connection struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Label    string `json:"label,omitempty"`
	Revealed bool   `json:"is_revealed"`
}

// Column centers per node type, left-to-right flow. Shifted inward
// slightly so nodes are not clipped at the canvas edges.
var columnX = map[NodeType]float64{
	NodeSource:    14,
	NodeProcessor: 36,
	NodeAI:        50,
	NodeDecision:  64,
	NodeOutput:    82,
}

// Vertical distribution down a column.
const (
	layoutYStart   = 22
	layoutYSpacing = 20
	layoutYMin     = 15
	layoutYMax     = 85
)

// NodePosition computes the layout slot for the n-th node of a type
// (zero-based). Nodes of the same type stack vertically without
// overlapping; types occupy distinct horizontal bands. Pure function:
// same inputs, same slot.
func NodePosition(t NodeType, existingOfType int) (x, y float64) {
	x, ok := columnX[t]
	if !ok {
		x = columnX[NodeProcessor]
	}

	y = layoutYStart + float64(existingOfType)*layoutYSpacing
	if y < layoutYMin {
		y = layoutYMin
	}
	if y > layoutYMax {
		y = layoutYMax
	}
	return x, y
}
