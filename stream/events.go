// Package stream decodes the newline-delimited JSON event protocol shared
// by the live completion provider and the mock conversation engine.
package stream

import "encoding/json"

// Event type discriminators recognized by the decoder.
const (
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventSuggestions       = "mock_suggestions"
	EventCommentary        = "mock_commentary"
	EventError             = "error"
)

// Content block discriminators carried by content_block_start events.
const (
	BlockText    = "text"
	BlockToolUse = "tool_use"
)

// Delta discriminators carried by content_block_delta events.
const (
	DeltaText      = "text_delta"
	DeltaInputJSON = "input_json_delta"
)

// Event is one decoded line of the stream protocol. Fields are populated
// according to Type; unrecognized fields are ignored so new provider event
// kinds pass through harmlessly.
type Event struct {
	Type  string `json:"type"`
	Index int    `json:"index,omitempty"`

	ContentBlock *ContentBlock `json:"content_block,omitempty"`
	Delta        *Delta        `json:"delta,omitempty"`

	// Suggestions is set on mock_suggestions events.
	Suggestions []string `json:"suggestions,omitempty"`

	// Commentary is set on mock_commentary events.
	Commentary string `json:"commentary,omitempty"`

	// Error carries a display message on error events.
	Error string `json:"error,omitempty"`
}

// ContentBlock announces a new block on content_block_start.
type ContentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// Name is the tool name for tool_use blocks.
	Name string `json:"name,omitempty"`

	// Input is the (usually empty) initial argument object for tool_use
	// blocks. Arguments arrive as input_json_delta fragments.
	Input json.RawMessage `json:"input,omitempty"`

	// Text is the initial text for text blocks, usually empty.
	Text string `json:"text,omitempty"`
}

// Delta carries the incremental payload of a content_block_delta or
// message_delta event.
type Delta struct {
	Type string `json:"type,omitempty"`

	// Text is the fragment for text_delta.
	Text string `json:"text,omitempty"`

	// PartialJSON is the argument fragment for input_json_delta. Fragments
	// are valid JSON only once concatenated in arrival order.
	PartialJSON string `json:"partial_json,omitempty"`

	// StopReason is set on terminal message_delta events.
	StopReason string `json:"stop_reason,omitempty"`
}
