// Package imagegen produces illustrative images for the workflow: state
// overview diagrams requested by the model and per-node icon art. All
// generation is best-effort; an unavailable backend degrades to no
// image, never to a failed conversation turn.
package imagegen

import (
	"context"
	"fmt"
	"strings"
)

// StateImageRequest describes a current-state or future-state overview
// illustration.
type StateImageRequest struct {
	// Type is "current" or "future".
	Type       string
	Summary    string
	Steps      []string
	Tools      []string
	PainPoints []string

	// Optional profile context folded into the prompt.
	Name     string
	Role     string
	Industry string
}

// Generator produces images as data URLs. An empty URL with a nil error
// means the backend declined (not configured, no image in response).
type Generator interface {
	// GenerateStateImage renders a workflow overview illustration.
	GenerateStateImage(ctx context.Context, req StateImageRequest) (string, error)

	// GenerateNodeImage renders icon art for one diagram node.
	GenerateNodeImage(ctx context.Context, label, description, nodeType string) (string, error)
}

// Nop is a Generator that never produces images.
type Nop struct{}

func (Nop) GenerateStateImage(context.Context, StateImageRequest) (string, error) {
	return "", nil
}

func (Nop) GenerateNodeImage(context.Context, string, string, string) (string, error) {
	return "", nil
}

var nodeTypeHints = map[string]string{
	"source":    "data input, database, API feed",
	"processor": "data processing, transformation, pipeline",
	"decision":  "decision logic, branching, AI model",
	"output":    "output, report, dashboard, notification",
	"ai":        "artificial intelligence, machine learning, neural network",
}

func stateImagePrompt(req StateImageRequest) string {
	stateLabel := "CURRENT STATE"
	if req.Type == "future" {
		stateLabel = "FUTURE STATE"
	}

	numbered := make([]string, len(req.Steps))
	for i, s := range req.Steps {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Generate a clean, professional workflow diagram image.

Style: Black and white, Visio/PowerPoint style, clean lines, professional.
- Dark background (#0d1208)
- White/light gray boxes with rounded corners
- Thin white connecting arrows between steps
- Step labels INSIDE boxes in clean sans-serif font
- Title at top: %q
- Minimal, professional, consistent
- NO color accents, just white/gray on dark

Type: %s
Process: %s
Steps: %s
`, stateLabel, stateLabel, req.Summary, strings.Join(numbered, " → "))

	if len(req.Tools) > 0 {
		fmt.Fprintf(&b, "Tools/Systems: %s\n", strings.Join(req.Tools, ", "))
	}
	if len(req.PainPoints) > 0 {
		fmt.Fprintf(&b, "Key points: %s\n", strings.Join(req.PainPoints, ", "))
	}
	if req.Name != "" {
		fmt.Fprintf(&b, "For: %s", req.Name)
		if req.Role != "" {
			fmt.Fprintf(&b, ", %s", req.Role)
		}
		if req.Industry != "" {
			fmt.Fprintf(&b, " in %s", req.Industry)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Layout: Horizontal flow, left to right. If more than 5 steps, wrap to second row.
Each box should contain the step name and a small icon/symbol.
Size: 1024x1024.
Do NOT include any watermarks or branding.`)
	return b.String()
}

func nodeImagePrompt(label, description, nodeType string) string {
	hint, ok := nodeTypeHints[nodeType]
	if !ok {
		hint = "technology"
	}
	desc := ""
	if description != "" {
		desc = ": " + description
	}
	return fmt.Sprintf(`Clean minimal flat icon on a solid dark (#0d1208) background. Subject: %q%s. Style: single centered object, vibrant neon glow effect, modern tech aesthetic (%s). No text, no labels. 256x256 pixel icon.`,
		label, desc, hint)
}
