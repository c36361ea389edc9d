package toolcall

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/toolforge/studio/llm"
	"github.com/toolforge/studio/stream"
)

// Handler receives each complete, validated tool call in arrival order.
type Handler func(call Call)

// Accumulator is the stateful per-stream reassembler. Providers stream
// tool arguments as successive fragments of a single JSON-encoded string,
// so correctness requires exact concatenation order and a full parse at
// block stop rather than incremental JSON parsing.
//
// An Accumulator is not safe for concurrent use; one stream has exactly
// one consumer.
type Accumulator struct {
	handler       Handler
	onText        func(full string)
	onSuggestions func([]string)
	onCommentary  func(string)
	onError       func(string)
	logger        *slog.Logger

	toolName string
	toolID   string
	args     strings.Builder
	text     strings.Builder
}

// AccumulatorOption configures an Accumulator.
type AccumulatorOption func(*Accumulator)

// WithTextSink sets a callback invoked with the full accumulated text
// after every text delta, for live display.
func WithTextSink(fn func(full string)) AccumulatorOption {
	return func(a *Accumulator) {
		a.onText = fn
	}
}

// WithSuggestionsSink sets a callback for mock suggestion events.
func WithSuggestionsSink(fn func([]string)) AccumulatorOption {
	return func(a *Accumulator) {
		a.onSuggestions = fn
	}
}

// WithCommentarySink sets a callback for mock commentary events.
func WithCommentarySink(fn func(string)) AccumulatorOption {
	return func(a *Accumulator) {
		a.onCommentary = fn
	}
}

// WithErrorSink sets a callback for in-band error events.
func WithErrorSink(fn func(string)) AccumulatorOption {
	return func(a *Accumulator) {
		a.onError = fn
	}
}

// WithAccumulatorLogger sets the logger for dropped-call diagnostics.
func WithAccumulatorLogger(logger *slog.Logger) AccumulatorOption {
	return func(a *Accumulator) {
		a.logger = logger
	}
}

// NewAccumulator creates an Accumulator dispatching to handler.
func NewAccumulator(handler Handler, opts ...AccumulatorOption) *Accumulator {
	a := &Accumulator{
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Consume processes one decoded event. Malformed tool arguments drop
// that one call; the stream continues.
func (a *Accumulator) Consume(ev *stream.Event) {
	switch ev.Type {
	case stream.EventContentBlockStart:
		if ev.ContentBlock != nil && ev.ContentBlock.Type == stream.BlockToolUse {
			a.toolName = ev.ContentBlock.Name
			a.toolID = ev.ContentBlock.ID
			a.args.Reset()
		}

	case stream.EventContentBlockDelta:
		if ev.Delta == nil {
			return
		}
		switch ev.Delta.Type {
		case stream.DeltaText:
			a.text.WriteString(ev.Delta.Text)
			if a.onText != nil {
				a.onText(a.text.String())
			}
		case stream.DeltaInputJSON:
			a.args.WriteString(ev.Delta.PartialJSON)
		}

	case stream.EventContentBlockStop:
		a.finishToolBlock()

	case stream.EventSuggestions:
		if a.onSuggestions != nil {
			a.onSuggestions(ev.Suggestions)
		}

	case stream.EventCommentary:
		if a.onCommentary != nil {
			a.onCommentary(ev.Commentary)
		}

	case stream.EventError:
		if a.onError != nil {
			a.onError(ev.Error)
		}
	}
}

// finishToolBlock parses and dispatches a pending tool call, then clears
// the name/buffer so a later call in the same stream starts clean. A stop
// with no pending tool start dispatches nothing.
func (a *Accumulator) finishToolBlock() {
	name := a.toolName
	raw := a.args.String()
	a.toolName = ""
	a.toolID = ""
	a.args.Reset()

	if name == "" || raw == "" {
		return
	}

	call, err := Parse(name, json.RawMessage(raw))
	if err != nil {
		// Real models occasionally fence or comment their argument
		// JSON; salvage once before giving up on the call.
		if cleaned := llm.ExtractJSON(raw); cleaned != "" && cleaned != raw {
			call, err = Parse(name, json.RawMessage(cleaned))
		}
	}
	if err != nil {
		a.logger.Warn("Dropping tool call",
			"tool", name,
			"error", err)
		return
	}
	if a.handler != nil {
		a.handler(call)
	}
}

// Text returns the full accumulated assistant text so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}
