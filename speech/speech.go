// Package speech turns finalized assistant replies into spoken audio.
// The orchestrator notifies it after each completed turn; synthesis is
// best-effort and never blocks or fails the conversation.
package speech

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Notifier receives each finalized assistant reply.
type Notifier interface {
	OnAssistantResponse(ctx context.Context, text, voiceID string)
}

var (
	emphasisRe = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	linkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	multiWSRe  = regexp.MustCompile(`\s+`)
)

var converter = md.NewConverter("", true, nil)

// CleanText strips the markup that creeps into assistant replies (the
// commentary-style <strong> tags, markdown emphasis) down to plain
// speakable text.
func CleanText(text string) string {
	if strings.Contains(text, "<") {
		if converted, err := converter.ConvertString(text); err == nil {
			text = converted
		}
	}
	text = emphasisRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = multiWSRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) OnAssistantResponse(context.Context, string, string) {}

// LogNotifier logs cleaned replies instead of synthesizing them, used
// when no synthesis backend is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) OnAssistantResponse(_ context.Context, text, voiceID string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Assistant reply ready for speech",
		"voice", voiceID,
		"chars", len(CleanText(text)))
}
