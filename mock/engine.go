// Package mock implements the scripted conversation engine: a drop-in
// stream provider that plays pre-authored persona scripts over the same
// newline-delimited JSON protocol the live provider speaks.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolforge/studio/llm"
	"github.com/toolforge/studio/persona"
	"github.com/toolforge/studio/stream"
)

// ProviderName registers the engine under this name.
const ProviderName = "mock"

// Default pacing. Word deltas arrive at a typing-like cadence; tool
// calls get a short gap so the diagram builds up visibly.
const (
	DefaultWordDelayMin = 30 * time.Millisecond
	DefaultWordDelayMax = 80 * time.Millisecond
	DefaultToolDelay    = 80 * time.Millisecond
)

// Engine replays persona scripts as completion streams. Step selection
// is deterministic: the n-th user message plays the n-th scripted step,
// clamped to the script's end. Pacing is the only randomness, and it is
// seedable.
type Engine struct {
	library *persona.Library
	logger  *slog.Logger

	wordDelayMin time.Duration
	wordDelayMax time.Duration
	toolDelay    time.Duration

	randMu sync.Mutex
	rand   *rand.Rand
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDelays overrides the pacing. Zero values stream without pauses,
// which tests rely on.
func WithDelays(wordMin, wordMax, tool time.Duration) EngineOption {
	return func(e *Engine) {
		e.wordDelayMin = wordMin
		e.wordDelayMax = wordMax
		e.toolDelay = tool
	}
}

// WithSeed fixes the pacing randomness.
func WithSeed(seed int64) EngineOption {
	return func(e *Engine) {
		e.rand = rand.New(rand.NewSource(seed))
	}
}

// NewEngine returns an engine backed by the given script library.
func NewEngine(library *persona.Library, opts ...EngineOption) *Engine {
	e := &Engine{
		library:      library,
		logger:       slog.Default(),
		wordDelayMin: DefaultWordDelayMin,
		wordDelayMax: DefaultWordDelayMax,
		toolDelay:    DefaultToolDelay,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements llm.StreamProvider.
func (e *Engine) Name() string { return ProviderName }

// OpenStream implements llm.StreamProvider. The stream is produced by a
// goroutine writing into a pipe; cancelling ctx tears it down
// mid-stream, which readers observe as a closed body.
func (e *Engine) OpenStream(ctx context.Context, req llm.StreamRequest) (io.ReadCloser, error) {
	key := persona.Key(req.Persona)
	if !persona.Known(key) {
		e.logger.Debug("Unknown persona, using default", "persona", req.Persona)
		key = persona.DefaultKey
	}
	step := e.library.StepFor(key, req.UserTurns())

	pr, pw := io.Pipe()
	go func() {
		err := e.play(ctx, pw, step)
		pw.CloseWithError(err)
	}()
	return pr, nil
}

// play writes one scripted turn as protocol events.
func (e *Engine) play(ctx context.Context, w io.Writer, step persona.Step) error {
	enc := json.NewEncoder(w)
	emit := func(ev stream.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return enc.Encode(ev)
	}

	// Text block, streamed word by word.
	if err := emit(stream.Event{
		Type:         stream.EventContentBlockStart,
		Index:        0,
		ContentBlock: &stream.ContentBlock{Type: stream.BlockText},
	}); err != nil {
		return err
	}

	words := strings.Split(step.Reply, " ")
	for i, word := range words {
		if i > 0 {
			word = " " + word
		}
		if err := emit(stream.Event{
			Type:  stream.EventContentBlockDelta,
			Index: 0,
			Delta: &stream.Delta{Type: stream.DeltaText, Text: word},
		}); err != nil {
			return err
		}
		if err := e.pause(ctx, e.wordDelay()); err != nil {
			return err
		}
	}

	if err := emit(stream.Event{Type: stream.EventContentBlockStop, Index: 0}); err != nil {
		return err
	}

	// Tool calls: one block each, the whole argument object as a single
	// JSON delta.
	for i, tc := range step.ToolCalls {
		index := i + 1
		input, err := json.Marshal(tc.Input)
		if err != nil {
			return fmt.Errorf("marshal %s input: %w", tc.Name, err)
		}

		if err := emit(stream.Event{
			Type:  stream.EventContentBlockStart,
			Index: index,
			ContentBlock: &stream.ContentBlock{
				Type:  stream.BlockToolUse,
				ID:    fmt.Sprintf("mock_tool_%d_%s", index, uuid.NewString()[:8]),
				Name:  tc.Name,
				Input: json.RawMessage(`{}`),
			},
		}); err != nil {
			return err
		}
		if err := emit(stream.Event{
			Type:  stream.EventContentBlockDelta,
			Index: index,
			Delta: &stream.Delta{Type: stream.DeltaInputJSON, PartialJSON: string(input)},
		}); err != nil {
			return err
		}
		if err := emit(stream.Event{Type: stream.EventContentBlockStop, Index: index}); err != nil {
			return err
		}
		if err := e.pause(ctx, e.toolDelay); err != nil {
			return err
		}
	}

	if len(step.Options) > 0 {
		if err := emit(stream.Event{Type: stream.EventSuggestions, Suggestions: step.Options}); err != nil {
			return err
		}
	}
	if step.Commentary != "" {
		if err := emit(stream.Event{Type: stream.EventCommentary, Commentary: step.Commentary}); err != nil {
			return err
		}
	}

	return emit(stream.Event{
		Type:  stream.EventMessageDelta,
		Delta: &stream.Delta{StopReason: "end_turn"},
	})
}

func (e *Engine) wordDelay() time.Duration {
	if e.wordDelayMax <= e.wordDelayMin {
		return e.wordDelayMin
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.wordDelayMin + time.Duration(e.rand.Int63n(int64(e.wordDelayMax-e.wordDelayMin)))
}

func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
