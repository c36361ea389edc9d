package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// anthropicVersion is the API version to use.
const anthropicVersion = "2023-06-01"

// errorBodyPreviewLen caps how much of an error response body is quoted
// in error messages.
const errorBodyPreviewLen = 200

// SystemPromptFunc builds the system prompt for a request from the
// persona key, profile, and interview stage. Prompt content is opaque
// configuration as far as this client is concerned.
type SystemPromptFunc func(req StreamRequest) string

// AnthropicClient streams completions from the Anthropic messages API,
// converting the provider's SSE framing into the newline-delimited JSON
// event contract consumed by the stream decoder.
type AnthropicClient struct {
	baseURL      string
	model        string
	maxTokens    int
	httpClient   *http.Client
	apiKey       string
	tools        []ToolDefinition
	systemPrompt SystemPromptFunc
	logger       *slog.Logger
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) AnthropicOption {
	return func(a *AnthropicClient) {
		a.httpClient = c
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) AnthropicOption {
	return func(a *AnthropicClient) {
		a.baseURL = url
	}
}

// WithModel sets the model identifier.
func WithModel(model string) AnthropicOption {
	return func(a *AnthropicClient) {
		a.model = model
	}
}

// WithMaxTokens sets the response token cap.
func WithMaxTokens(n int) AnthropicOption {
	return func(a *AnthropicClient) {
		a.maxTokens = n
	}
}

// WithAPIKey sets the API key explicitly instead of reading the
// ANTHROPIC_API_KEY environment variable.
func WithAPIKey(key string) AnthropicOption {
	return func(a *AnthropicClient) {
		a.apiKey = key
	}
}

// WithTools sets the tool vocabulary sent with every request.
func WithTools(tools []ToolDefinition) AnthropicOption {
	return func(a *AnthropicClient) {
		a.tools = tools
	}
}

// WithSystemPrompt sets the system prompt builder.
func WithSystemPrompt(fn SystemPromptFunc) AnthropicOption {
	return func(a *AnthropicClient) {
		a.systemPrompt = fn
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) AnthropicOption {
	return func(a *AnthropicClient) {
		a.logger = logger
	}
}

// NewAnthropicClient creates a streaming client with sensible defaults.
func NewAnthropicClient(opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		baseURL:   "https://api.anthropic.com",
		model:     "claude-sonnet-4-20250514",
		maxTokens: 2048,
		apiKey:    os.Getenv("ANTHROPIC_API_KEY"),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // allow time for long generations
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// anthropicRequest is the messages API request format.
type anthropicRequest struct {
	Model      string           `json:"model"`
	MaxTokens  int              `json:"max_tokens"`
	Messages   []Message        `json:"messages"`
	System     string           `json:"system,omitempty"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice *toolChoice      `json:"tool_choice,omitempty"`
	Stream     bool             `json:"stream"`
}

type toolChoice struct {
	Type string `json:"type"`
}

// BuildRequestBody creates the messages API request body. System turns in
// the history are folded into the system prompt; only user and assistant
// turns travel in messages.
func (c *AnthropicClient) BuildRequestBody(req StreamRequest) ([]byte, error) {
	system := ""
	if c.systemPrompt != nil {
		system = c.systemPrompt(req)
	}

	var apiMessages []Message
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.PlainText()
		case RoleUser, RoleAssistant:
			apiMessages = append(apiMessages, msg)
		}
	}

	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  apiMessages,
		System:    system,
		Stream:    true,
	}
	if len(c.tools) > 0 {
		body.Tools = c.tools
		body.ToolChoice = &toolChoice{Type: "any"}
	}

	return json.Marshal(body)
}

// OpenStream starts a streaming completion. The returned body converts
// the provider's SSE frames into one JSON event per line.
func (c *AnthropicClient) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	body, err := c.BuildRequestBody(req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/v1/messages"

	c.logger.Debug("Opening completion stream",
		"provider", c.Name(),
		"model", c.model,
		"messages", len(req.Messages),
		"persona", req.Persona)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return newSSEBody(httpResp.Body), nil
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > errorBodyPreviewLen {
		bodyStr = bodyStr[:errorBodyPreviewLen] + "..."
	}

	err := fmt.Errorf("provider error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return NewFatalError(err)
	case statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
