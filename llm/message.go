// Package llm defines the completion provider boundary: chat message
// types, the tool vocabulary definition shape, and a provider-agnostic
// streaming contract. The core does not care how the event stream is
// produced (real model or mock) as long as it conforms to the stream
// package's event vocabulary.
package llm

import (
	"fmt"
	"regexp"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents one chat turn sent to the provider. Content is a
// list of parts so user turns can carry an attached screenshot alongside
// text; most turns have a single text part.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one segment of a message: text or an inline image.
type ContentPart struct {
	Type   string       `json:"type"` // "text" or "image"
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries an inline base64 image payload.
type ImageSource struct {
	Type      string `json:"type"` // always "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Text builds a single-part text message.
func Text(role, content string) Message {
	return Message{
		Role:    role,
		Content: []ContentPart{{Type: "text", Text: content}},
	}
}

// dataURLPattern matches base64 image data URLs as produced by the
// screen-capture boundary.
var dataURLPattern = regexp.MustCompile(`^data:(image/\w+);base64,(.+)$`)

// UserWithImage builds a user message with an image part (decoded from a
// data URL) followed by a text part. If the data URL does not parse, the
// image is dropped and a plain text message is returned.
func UserWithImage(content, imageDataURL string) Message {
	m := dataURLPattern.FindStringSubmatch(imageDataURL)
	if m == nil {
		return Text(RoleUser, content)
	}
	return Message{
		Role: RoleUser,
		Content: []ContentPart{
			{Type: "image", Source: &ImageSource{Type: "base64", MediaType: m[1], Data: m[2]}},
			{Type: "text", Text: content},
		},
	}
}

// PlainText returns the concatenated text parts of a message.
func (m Message) PlainText() string {
	var out string
	for _, part := range m.Content {
		if part.Type == "text" {
			out += part.Text
		}
	}
	return out
}

// Validate checks the message has a known role and at least one part.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	if len(m.Content) == 0 {
		return fmt.Errorf("message has no content parts")
	}
	return nil
}
