// Package server exposes the streaming chat surface over HTTP. One
// endpoint relays provider streams to clients as newline-delimited JSON;
// the rest is operational plumbing (health, metrics, session lookup).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toolforge/studio/llm"
	"github.com/toolforge/studio/observability"
	"github.com/toolforge/studio/session"
)

// SessionReader serves saved-session lookups. *session.Store satisfies
// it; the server works without one.
type SessionReader interface {
	Load(ctx context.Context, id string) (*session.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// Server is the HTTP front for a stream provider.
type Server struct {
	provider llm.StreamProvider
	sessions SessionReader
	metrics  *observability.Collector
	logger   *slog.Logger

	// streamTimeout caps how long one relayed turn may run.
	streamTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithSessionReader enables the session endpoints.
func WithSessionReader(r SessionReader) Option {
	return func(s *Server) {
		s.sessions = r
	}
}

// WithMetrics enables stream metrics and the /metrics endpoint.
func WithMetrics(m *observability.Collector) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithStreamTimeout caps the duration of one relayed stream.
func WithStreamTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.streamTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server relaying streams from the given provider.
func New(provider llm.StreamProvider, opts ...Option) *Server {
	s := &Server{
		provider:      provider,
		logger:        slog.Default(),
		streamTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/stream", s.handleChatStream)
	mux.HandleFunc("/v1/sessions/", s.handleSession)
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "provider": s.provider.Name()})
}

// handleChatStream opens a provider stream for the posted request and
// relays it line by line. Each event is flushed as soon as it is read so
// clients see words as they are generated.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req llm.StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages must not be empty", http.StatusBadRequest)
		return
	}
	for _, m := range req.Messages {
		if err := m.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.streamTimeout)
	defer cancel()

	started := time.Now()
	if s.metrics != nil {
		s.metrics.StreamsStarted.WithLabelValues(s.provider.Name()).Inc()
	}

	body, err := s.provider.OpenStream(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.StreamsFailed.WithLabelValues(s.provider.Name()).Inc()
		}
		s.logger.Error("Failed to open provider stream", "provider", s.provider.Name(), "error", err)
		status := http.StatusBadGateway
		if llm.IsFatal(err) {
			status = http.StatusInternalServerError
		}
		http.Error(w, "provider stream failed", status)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if err := relay(w, flusher, body); err != nil {
		// Headers are already out; all we can do is log. A client
		// disconnect lands here too.
		s.logger.Warn("Stream relay ended early", "error", err)
		if s.metrics != nil {
			s.metrics.StreamsAborted.Inc()
		}
		return
	}

	if s.metrics != nil {
		s.metrics.StreamDuration.Observe(time.Since(started).Seconds())
	}
}

// relay copies the provider stream to the client, flushing after every
// chunk so pacing survives the hop.
func relay(w io.Writer, flusher http.Flusher, body io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// handleSession serves GET and DELETE for /v1/sessions/{id}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session persistence disabled", http.StatusNotFound)
		return
	}

	id := r.URL.Path[len("/v1/sessions/"):]
	if id == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		snap, err := s.sessions.Load(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.Error("Failed to load session", "session_id", id, "error", err)
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)

	case http.MethodDelete:
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			s.logger.Error("Failed to delete session", "session_id", id, "error", err)
			http.Error(w, "failed to delete session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
