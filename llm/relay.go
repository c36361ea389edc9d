package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RelayClient streams completions from a relay endpoint that already
// speaks the newline-delimited JSON event protocol (such as the studio
// mock server). The response body passes through untouched, which keeps
// the relay and direct-API paths indistinguishable to the decoder.
type RelayClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// RelayOption configures a RelayClient.
type RelayOption func(*RelayClient)

// WithRelayHTTPClient sets a custom HTTP client.
func WithRelayHTTPClient(c *http.Client) RelayOption {
	return func(r *RelayClient) {
		r.httpClient = c
	}
}

// WithRelayLogger sets the logger.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *RelayClient) {
		r.logger = logger
	}
}

// NewRelayClient creates a client for the given relay endpoint URL.
func NewRelayClient(endpoint string, opts ...RelayOption) *RelayClient {
	r := &RelayClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the provider identifier.
func (r *RelayClient) Name() string {
	return "relay"
}

// OpenStream posts the request and returns the relay's event stream.
func (r *RelayClient) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal stream request: %w", err))
	}

	r.logger.Debug("Opening relay stream",
		"endpoint", r.endpoint,
		"messages", len(req.Messages),
		"persona", req.Persona)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return httpResp.Body, nil
}
