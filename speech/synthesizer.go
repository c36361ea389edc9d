package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Synthesis backend defaults, ElevenLabs-shaped.
const (
	defaultSynthBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"
	defaultModelID      = "eleven_multilingual_v2"

	// maxSynthChars is the backend's per-request text limit.
	maxSynthChars = 5000
)

// Synthesizer streams text-to-speech audio from an HTTP backend and is
// also a Notifier: each finalized reply is synthesized in the background
// and handed to the audio sink.
type Synthesizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	// sink receives the audio stream for playback. The sink owns closing
	// the reader.
	sink func(audio io.ReadCloser)
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithSynthBaseURL overrides the backend base URL.
func WithSynthBaseURL(url string) SynthesizerOption {
	return func(s *Synthesizer) {
		s.baseURL = url
	}
}

// WithSynthAPIKey sets the backend API key explicitly.
func WithSynthAPIKey(key string) SynthesizerOption {
	return func(s *Synthesizer) {
		s.apiKey = key
	}
}

// WithSynthHTTPClient sets the HTTP client.
func WithSynthHTTPClient(c *http.Client) SynthesizerOption {
	return func(s *Synthesizer) {
		s.httpClient = c
	}
}

// WithAudioSink sets the destination for synthesized audio.
func WithAudioSink(sink func(audio io.ReadCloser)) SynthesizerOption {
	return func(s *Synthesizer) {
		s.sink = sink
	}
}

// WithSynthLogger sets the logger.
func WithSynthLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// NewSynthesizer creates a synthesizer. The API key defaults to the
// ELEVENLABS_API_KEY environment variable.
func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		baseURL:    defaultSynthBaseURL,
		apiKey:     os.Getenv("ELEVENLABS_API_KEY"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a usable API key is present.
func (s *Synthesizer) Configured() bool {
	return s.apiKey != "" && s.apiKey != "your-elevenlabs-key-here"
}

type synthRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize streams audio for text in the given voice. The caller owns
// closing the returned body.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("speech backend not configured")
	}
	text = CleanText(text)
	if text == "" {
		return nil, fmt.Errorf("no text to synthesize")
	}
	if len(text) > maxSynthChars {
		text = text[:maxSynthChars]
	}
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	body, err := json.Marshal(synthRequest{
		Text:    text,
		ModelID: defaultModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.8,
			Style:           0.2,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream", s.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("synthesis backend returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// OnAssistantResponse implements Notifier. Synthesis runs in the
// background; failures are logged and dropped.
func (s *Synthesizer) OnAssistantResponse(ctx context.Context, text, voiceID string) {
	if !s.Configured() || s.sink == nil {
		return
	}
	go func() {
		audio, err := s.Synthesize(ctx, text, voiceID)
		if err != nil {
			s.logger.Warn("Speech synthesis failed", "error", err)
			return
		}
		s.sink(audio)
	}()
}
