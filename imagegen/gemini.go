package imagegen

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

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	stateImageModel      = "gemini-2.5-flash-image"
	nodeImageModel       = "gemini-2.5-flash-preview-04-17"
)

// GeminiGenerator renders images through the Gemini generateContent API
// and returns them as base64 data URLs.
type GeminiGenerator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// GeminiOption configures a GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithGeminiBaseURL overrides the API base URL.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.baseURL = url
	}
}

// WithGeminiAPIKey sets the API key explicitly.
func WithGeminiAPIKey(key string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.apiKey = key
	}
}

// WithGeminiHTTPClient sets the HTTP client.
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiGenerator) {
		g.httpClient = c
	}
}

// WithGeminiLogger sets the logger.
func WithGeminiLogger(logger *slog.Logger) GeminiOption {
	return func(g *GeminiGenerator) {
		g.logger = logger
	}
}

// NewGeminiGenerator creates a generator. The API key defaults to the
// GEMINI_API_KEY environment variable.
func NewGeminiGenerator(opts ...GeminiOption) *GeminiGenerator {
	g := &GeminiGenerator{
		baseURL:    defaultGeminiBaseURL,
		apiKey:     os.Getenv("GEMINI_API_KEY"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether a usable API key is present.
func (g *GeminiGenerator) Configured() bool {
	return g.apiKey != "" && g.apiKey != "your-gemini-key-here"
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateStateImage implements Generator.
func (g *GeminiGenerator) GenerateStateImage(ctx context.Context, req StateImageRequest) (string, error) {
	return g.generate(ctx, stateImageModel, stateImagePrompt(req))
}

// GenerateNodeImage implements Generator.
func (g *GeminiGenerator) GenerateNodeImage(ctx context.Context, label, description, nodeType string) (string, error) {
	return g.generate(ctx, nodeImageModel, nodeImagePrompt(label, description, nodeType))
}

// generate runs one generateContent call and extracts the first inline
// image from the response. A response without an image returns an empty
// URL, not an error.
func (g *GeminiGenerator) generate(ctx context.Context, model, prompt string) (string, error) {
	if !g.Configured() {
		return "", nil
	}

	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("image backend returned %d: %s", resp.StatusCode, detail)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}

	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return fmt.Sprintf("data:%s;base64,%s", mime, part.InlineData.Data), nil
		}
	}

	g.logger.Debug("Image response contained no inline image", "model", model)
	return "", nil
}
