package llm

import (
	"context"
	"io"
	"sync"
)

// StreamRequest is the provider-agnostic completion request: the full
// prior history plus the new turn, the persona key, the accumulated user
// profile, and the current interview stage.
type StreamRequest struct {
	Messages []Message `json:"messages"`
	Persona  string    `json:"persona"`
	Profile  any       `json:"profile,omitempty"`
	Stage    string    `json:"interview_stage,omitempty"`
}

// UserTurns counts the user messages in the request history. The mock
// engine keys its deterministic step selection on this.
func (r StreamRequest) UserTurns() int {
	n := 0
	for _, m := range r.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// StreamProvider opens a completion stream for a request. The returned
// body is a byte stream of newline-delimited JSON events in the stream
// package's vocabulary. Cancelling ctx aborts the stream.
type StreamProvider interface {
	// Name returns the provider identifier (e.g. "anthropic", "mock").
	Name() string

	// OpenStream starts the completion and returns the event stream.
	OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error)
}

// providerRegistry holds registered providers by name.
var (
	providerRegistry = make(map[string]StreamProvider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p StreamProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, or nil if unregistered.
func GetProvider(name string) StreamProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
