// Package chat orchestrates one conversation turn end to end: append
// the user message, open the provider stream, pump decoded events
// through the tool-call accumulator, apply the resulting calls to the
// session stores, and finalize the assistant reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/toolforge/studio/conversation"
	"github.com/toolforge/studio/diagram"
	"github.com/toolforge/studio/imagegen"
	"github.com/toolforge/studio/interview"
	"github.com/toolforge/studio/llm"
	"github.com/toolforge/studio/observability"
	"github.com/toolforge/studio/persona"
	"github.com/toolforge/studio/session"
	"github.com/toolforge/studio/speech"
	"github.com/toolforge/studio/stream"
	"github.com/toolforge/studio/toolcall"
)

// User-facing system messages for failed turns.
const (
	msgConnectionError = "Connection error. Please try again."
	msgCancelled       = "Response cancelled."

	// fallbackGreeting is shown when the greeting stream itself fails.
	fallbackGreeting = "Hello! I'm here to help you design a micro tool. What repetitive task is eating your time?"
)

// Action is a tool call forwarded to the UI layer for routing decisions
// the core does not make itself (surface switches, image placement).
type Action struct {
	Type string
	Call toolcall.Call
}

// SessionSaver persists snapshots off the hot path. *session.Store
// satisfies it.
type SessionSaver interface {
	SaveAsync(id string, snap session.Snapshot)
}

// Orchestrator drives conversation turns for one session. Public
// operations are safe for concurrent use; stream processing itself is
// single-flight per turn.
type Orchestrator struct {
	provider llm.StreamProvider
	log      *conversation.Log
	diagram  *diagram.Store
	tracker  *interview.Tracker

	personaKey persona.Key
	sessionID  string

	sessions SessionSaver
	images   imagegen.Generator
	speaker  speech.Notifier
	metrics  *observability.Collector
	logger   *slog.Logger

	onAction     func(Action)
	onStateImage func(imageType, dataURL string)

	mu     sync.Mutex
	cancel context.CancelFunc
	phase  session.Phase
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPersona selects the avatar personality for this session.
func WithPersona(key persona.Key) Option {
	return func(o *Orchestrator) {
		o.personaKey = key
	}
}

// WithSessionID sets the persistence key for this session.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

// WithConversationLog substitutes the message store.
func WithConversationLog(log *conversation.Log) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithDiagram substitutes the diagram store.
func WithDiagram(d *diagram.Store) Option {
	return func(o *Orchestrator) {
		o.diagram = d
	}
}

// WithTracker substitutes the interview tracker.
func WithTracker(t *interview.Tracker) Option {
	return func(o *Orchestrator) {
		o.tracker = t
	}
}

// WithSessionSaver enables snapshot persistence.
func WithSessionSaver(s SessionSaver) Option {
	return func(o *Orchestrator) {
		o.sessions = s
	}
}

// WithImageGenerator enables workflow illustration.
func WithImageGenerator(g imagegen.Generator) Option {
	return func(o *Orchestrator) {
		o.images = g
	}
}

// WithSpeechNotifier enables spoken replies.
func WithSpeechNotifier(n speech.Notifier) Option {
	return func(o *Orchestrator) {
		o.speaker = n
	}
}

// WithMetrics enables pipeline metrics.
func WithMetrics(m *observability.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithActionSink forwards UI-routing tool calls.
func WithActionSink(fn func(Action)) Option {
	return func(o *Orchestrator) {
		o.onAction = fn
	}
}

// WithStateImageSink receives generated state illustrations.
func WithStateImageSink(fn func(imageType, dataURL string)) Option {
	return func(o *Orchestrator) {
		o.onStateImage = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator over the given provider. Stores default
// to fresh session-scoped instances.
func New(provider llm.StreamProvider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:   provider,
		log:        conversation.NewLog(),
		diagram:    diagram.NewStore(),
		tracker:    interview.NewTracker(),
		personaKey: persona.DefaultKey,
		images:     imagegen.Nop{},
		speaker:    speech.Nop{},
		logger:     slog.Default(),
		phase:      session.PhaseDiscover,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Log returns the session's conversation log.
func (o *Orchestrator) Log() *conversation.Log { return o.log }

// Diagram returns the session's diagram store.
func (o *Orchestrator) Diagram() *diagram.Store { return o.diagram }

// Tracker returns the session's interview tracker.
func (o *Orchestrator) Tracker() *interview.Tracker { return o.tracker }

// Persona returns the session's avatar personality.
func (o *Orchestrator) Persona() persona.Persona { return persona.Get(o.personaKey) }

// SetPhase records the outer journey phase for persistence.
func (o *Orchestrator) SetPhase(p session.Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phase = p
}

// Phase returns the current journey phase.
func (o *Orchestrator) Phase() session.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// IsStreaming reports whether a turn is in flight.
func (o *Orchestrator) IsStreaming() bool {
	return o.log.Streaming()
}

// Abort cancels the in-flight turn, if any. Already-applied tool calls
// stay applied; the partial assistant text is discarded.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SendMessage runs one full user turn: append the message, stream the
// assistant response, apply tool calls, finalize. A transport or
// provider failure surfaces as a system message; the turn's partial
// text is discarded.
func (o *Orchestrator) SendMessage(ctx context.Context, text, imageDataURL string) error {
	o.log.SetSuggestions(nil)
	o.log.Append(conversation.RoleUser, text, imageDataURL)

	history := o.history(imageDataURL)
	req := llm.StreamRequest{
		Messages: history,
		Persona:  string(o.personaKey),
		Profile:  o.tracker.Profile(),
		Stage:    string(o.tracker.Stage()),
	}

	fullText, err := o.streamTurn(ctx, req)
	if err != nil {
		if llm.IsAborted(err) {
			o.log.Append(conversation.RoleSystem, msgCancelled, "")
			if o.metrics != nil {
				o.metrics.StreamsAborted.Inc()
			}
		} else {
			o.logger.Error("Chat turn failed", "error", err)
			o.log.Append(conversation.RoleSystem, msgConnectionError, "")
			if o.metrics != nil {
				o.metrics.StreamsFailed.WithLabelValues(o.provider.Name()).Inc()
			}
		}
		return err
	}

	o.finalize(ctx, fullText)
	return nil
}

// SendGreeting opens the conversation. The greeting turn synthesizes a
// user message from the onboarding profile but does not record it in
// the log; only the assistant's reply lands there.
func (o *Orchestrator) SendGreeting(ctx context.Context) error {
	o.log.SetSuggestions(nil)

	req := llm.StreamRequest{
		Messages: []llm.Message{llm.Text(llm.RoleUser, o.greetingText())},
		Persona:  string(o.personaKey),
		Profile:  o.tracker.Profile(),
		Stage:    string(o.tracker.Stage()),
	}

	fullText, err := o.streamTurn(ctx, req)
	if err != nil {
		o.logger.Error("Greeting failed", "error", err)
		o.log.Append(conversation.RoleAssistant, fallbackGreeting, "")
		return err
	}

	o.finalize(ctx, fullText)
	return nil
}

// greetingText builds the opening user message from whatever onboarding
// collected. With no profile it falls back to a generic opener.
func (o *Orchestrator) greetingText() string {
	p := o.tracker.Profile()
	if p.Name == "" && len(p.PainPoints) == 0 {
		return "Hello! I want to build a micro tool for my workflow."
	}

	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("My name is %s.", p.Name))
	}
	if p.Role != "" {
		role := fmt.Sprintf("I'm a %s", p.Role)
		if p.Industry != "" {
			role += fmt.Sprintf(" in %s", p.Industry)
		}
		parts = append(parts, role+".")
	}
	if len(p.PainPoints) > 0 {
		parts = append(parts, fmt.Sprintf("My main pain point: %s.", p.PainPoints[0]))
	}
	if len(p.DesiredOutcomes) > 0 {
		parts = append(parts, fmt.Sprintf("What I want: %s.", p.DesiredOutcomes[0]))
	}
	return strings.Join(parts, " ")
}

// history converts the log into provider messages, excluding system
// messages. The newest user turn becomes multimodal when it carried an
// image.
func (o *Orchestrator) history(imageDataURL string) []llm.Message {
	msgs := o.log.Messages()
	history := make([]llm.Message, 0, len(msgs))
	for i, m := range msgs {
		if m.Role == conversation.RoleSystem {
			continue
		}
		if i == len(msgs)-1 && m.Role == conversation.RoleUser && imageDataURL != "" {
			history = append(history, llm.UserWithImage(m.Content, imageDataURL))
			continue
		}
		history = append(history, llm.Text(m.Role, m.Content))
	}
	return history
}

// streamTurn opens the provider stream and pumps it to completion,
// returning the full assistant text. The turn is cancellable through
// Abort.
func (o *Orchestrator) streamTurn(ctx context.Context, req llm.StreamRequest) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	o.log.SetStreaming(true)
	o.log.SetStreamingText("")
	defer o.log.SetStreaming(false)

	started := time.Now()
	if o.metrics != nil {
		o.metrics.StreamsStarted.WithLabelValues(o.provider.Name()).Inc()
	}

	body, err := o.provider.OpenStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("open stream: %w", err)
	}
	defer body.Close()

	acc := toolcall.NewAccumulator(o.handleCall,
		toolcall.WithTextSink(o.log.SetStreamingText),
		toolcall.WithSuggestionsSink(o.log.SetSuggestions),
		toolcall.WithCommentarySink(o.diagram.SetCommentary),
		toolcall.WithErrorSink(func(msg string) {
			o.logger.Error("Stream reported error", "error", msg)
		}),
		toolcall.WithAccumulatorLogger(o.logger),
	)

	dec := stream.NewDecoder(body, stream.WithLogger(o.logger))
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
		if o.metrics != nil {
			o.metrics.EventsDecoded.Inc()
		}
		acc.Consume(ev)
	}

	if o.metrics != nil {
		o.metrics.StreamDuration.Observe(time.Since(started).Seconds())
	}
	return acc.Text(), nil
}

// finalize records the completed assistant reply and kicks off the
// best-effort followers: speech and persistence.
func (o *Orchestrator) finalize(ctx context.Context, fullText string) {
	if fullText == "" {
		return
	}
	o.log.Append(conversation.RoleAssistant, fullText, "")
	o.speaker.OnAssistantResponse(ctx, fullText, o.Persona().VoiceID)
	o.saveSnapshot()
}

// handleCall applies one validated tool call to the session stores.
func (o *Orchestrator) handleCall(call toolcall.Call) {
	switch c := call.(type) {
	case toolcall.AddWorkflowNode:
		o.diagram.AddNode(diagram.NodeSpec{
			ID:          c.ID,
			Label:       c.Label,
			Type:        diagram.NodeType(c.Type),
			Icon:        c.Icon,
			Description: c.Description,
		})
		o.diagram.ScheduleReveal(c.ID)
		if o.metrics != nil {
			o.metrics.NodesCreated.Inc()
		}
		o.forward(call)
		o.illustrateNode(c)

	case toolcall.AddWorkflowConnection:
		o.diagram.AddConnection(diagram.ConnectionSpec{
			From:  c.From,
			To:    c.To,
			Label: c.Label,
		})
		if o.metrics != nil {
			o.metrics.ConnectionsCreated.Inc()
		}

	case toolcall.UpdateInterviewStage:
		o.tracker.SetStage(interview.Stage(c.Stage))
		if c.Commentary != "" {
			o.diagram.SetCommentary(c.Commentary)
		}
		o.forward(call)

	case toolcall.ExtractUserContext:
		o.tracker.UpdateProfile(interview.ProfileUpdate{
			Role:            c.Role,
			Department:      c.Department,
			CompanyContext:  c.CompanyContext,
			DesiredOutcomes: c.DesiredOutcomes,
			PainPoints:      c.PainPoints,
			CurrentTools:    c.CurrentTools,
		})

	case toolcall.GenerateStateImage:
		o.forward(call)
		o.illustrateState(c)

	case toolcall.RequestValidation:
		o.forward(call)
	}

	if o.metrics != nil {
		o.metrics.ToolCallsDispatched.WithLabelValues(call.Tool()).Inc()
	}
}

func (o *Orchestrator) forward(call toolcall.Call) {
	if o.onAction != nil {
		o.onAction(Action{Type: call.Tool(), Call: call})
	}
}

// illustrateNode generates icon art for a new node in the background.
func (o *Orchestrator) illustrateNode(c toolcall.AddWorkflowNode) {
	if _, ok := o.images.(imagegen.Nop); ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		url, err := o.images.GenerateNodeImage(ctx, c.Label, c.Description, c.Type)
		if err != nil {
			o.logger.Warn("Node illustration failed", "node", c.ID, "error", err)
			return
		}
		if url != "" {
			o.diagram.UpdateNodeImage(c.ID, url)
		}
	}()
}

// illustrateState renders a current/future state overview in the
// background and hands it to the UI sink.
func (o *Orchestrator) illustrateState(c toolcall.GenerateStateImage) {
	if o.onStateImage == nil {
		return
	}
	p := o.tracker.Profile()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		url, err := o.images.GenerateStateImage(ctx, imagegen.StateImageRequest{
			Type:       c.Type,
			Summary:    c.Summary,
			Steps:      c.Steps,
			Tools:      c.Tools,
			PainPoints: c.PainPoints,
			Name:       p.Name,
			Role:       p.Role,
			Industry:   p.Industry,
		})
		if err != nil {
			o.logger.Warn("State illustration failed", "type", c.Type, "error", err)
			return
		}
		if url != "" {
			o.onStateImage(c.Type, url)
		}
	}()
}

// saveSnapshot persists the full session state, fire and forget.
func (o *Orchestrator) saveSnapshot() {
	if o.sessions == nil || o.sessionID == "" {
		return
	}
	snap := session.Snapshot{
		Persona:     string(o.personaKey),
		Phase:       o.Phase(),
		Stage:       o.tracker.Stage(),
		Profile:     o.tracker.Profile(),
		Messages:    o.log.Messages(),
		Nodes:       o.diagram.Nodes(),
		Connections: o.diagram.Connections(),
	}
	o.sessions.SaveAsync(o.sessionID, snap)
	if o.metrics != nil {
		o.metrics.SessionSaves.Inc()
	}
}

// Restore loads a saved snapshot into the session stores.
func (o *Orchestrator) Restore(snap *session.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	o.log.Restore(snap.Messages)
	o.tracker.SetProfile(snap.Profile)
	if snap.Stage != "" {
		o.tracker.SetStage(snap.Stage)
	}
	o.SetPhase(snap.Phase)

	o.diagram.Reset()
	for _, n := range snap.Nodes {
		o.diagram.AddNode(diagram.NodeSpec{
			ID:          n.ID,
			Label:       n.Label,
			Type:        n.Type,
			Icon:        n.Icon,
			Description: n.Description,
		})
		o.diagram.UpdateNodePosition(n.ID, n.X, n.Y)
		if n.ImageURL != "" {
			o.diagram.UpdateNodeImage(n.ID, n.ImageURL)
		}
		if n.Revealed {
			o.diagram.RevealNode(n.ID)
		}
	}
	for _, c := range snap.Connections {
		o.diagram.AddConnection(diagram.ConnectionSpec{From: c.From, To: c.To, Label: c.Label})
	}
	return nil
}

// Reset clears all session state for a fresh conversation.
func (o *Orchestrator) Reset() {
	o.Abort()
	o.log.Clear()
	o.diagram.Reset()
	o.tracker.Reset()
}
