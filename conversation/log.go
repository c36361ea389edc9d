// Package conversation holds the session-scoped message history plus the
// transient streaming state the UI renders while an assistant turn is in
// flight.
package conversation

import (
	"fmt"
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversation turn. Ids are allocated by the log and
// unique within a session.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`

	// ImageURL is a base64 data URL for an attached screenshot, set on
	// user turns only.
	ImageURL  string    `json:"image_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is the ordered message history for one session. One writer (the
// chat path) appends; UI observers read snapshots.
type Log struct {
	mu            sync.Mutex
	messages      []Message
	msgSeq        int
	streaming     bool
	streamingText string
	suggestions   []string

	now func() time.Time
}

// NewLog returns an empty conversation log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds a message, stamping id and timestamp, and returns it.
func (l *Log) Append(role, content, imageURL string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.msgSeq++
	msg := Message{
		ID:        fmt.Sprintf("msg-%d", l.msgSeq),
		Role:      role,
		Content:   content,
		ImageURL:  imageURL,
		Timestamp: l.now(),
	}
	l.messages = append(l.messages, msg)
	return msg
}

// UpdateLastAssistant rewrites the content of the most recent assistant
// message. No-op when none exists.
func (l *Log) UpdateLastAssistant(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == RoleAssistant {
			l.messages[i].Content = content
			return
		}
	}
}

// Messages returns a copy of the history in order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Restore replaces the history, used when loading a saved session. The
// id counter advances past the restored messages so new ids stay unique.
func (l *Log) Restore(messages []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]Message(nil), messages...)
	l.msgSeq = len(messages)
}

// SetStreaming flags whether an assistant turn is in flight.
func (l *Log) SetStreaming(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streaming = v
	if !v {
		l.streamingText = ""
	}
}

// Streaming reports whether an assistant turn is in flight.
func (l *Log) Streaming() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.streaming
}

// SetStreamingText updates the partial assistant text shown while
// streaming.
func (l *Log) SetStreamingText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streamingText = text
}

// StreamingText returns the current partial assistant text.
func (l *Log) StreamingText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.streamingText
}

// SetSuggestions replaces the quick-reply suggestions for the current
// turn.
func (l *Log) SetSuggestions(s []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suggestions = append([]string(nil), s...)
}

// Suggestions returns the current quick-reply suggestions.
func (l *Log) Suggestions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.suggestions...)
}

// Clear wipes history, streaming text, and suggestions. The id counter
// restarts so ids are stable across sessions.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
	l.msgSeq = 0
	l.streamingText = ""
	l.suggestions = nil
}
