// Package session persists conversation sessions to a NATS JetStream KV
// bucket so a session survives reconnects. Saves along the hot path are
// fire-and-forget: persistence failures are logged, never surfaced to
// the conversation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/toolforge/studio/conversation"
	"github.com/toolforge/studio/diagram"
	"github.com/toolforge/studio/interview"
)

// SessionsBucket is the KV bucket name for session snapshots.
const SessionsBucket = "STUDIO_SESSIONS"

// DefaultSessionTTL expires idle sessions after 30 days.
const DefaultSessionTTL = 30 * 24 * time.Hour

// ErrNotFound is returned when no snapshot exists for a session id.
var ErrNotFound = errors.New("session not found")

// Phase is the outer journey step the session UI is on.
type Phase string

// The session phases.
const (
	PhaseSelection Phase = "selection"
	PhaseDiscover  Phase = "discover"
	PhaseDesign    Phase = "design"
	PhaseBlueprint Phase = "blueprint"
	PhaseBuild     Phase = "build"
	PhaseValidate  Phase = "validate"
)

// Snapshot is the full persisted state of one session.
type Snapshot struct {
	Persona     string                 `json:"persona"`
	Phase       Phase                  `json:"phase"`
	Stage       interview.Stage        `json:"stage"`
	Profile     interview.Profile      `json:"profile"`
	Messages    []conversation.Message `json:"messages"`
	Nodes       []diagram.Node         `json:"nodes"`
	Connections []diagram.Connection   `json:"connections"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// KeyValue is the slice of the JetStream KV interface the store uses.
// jetstream.KeyValue satisfies it; tests substitute a fake.
type KeyValue interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// Store persists session snapshots.
type Store struct {
	bucket KeyValue
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSessionTTL sets the idle-session expiry.
func WithSessionTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates the sessions bucket (idempotently) and returns a
// store over it.
func NewStore(ctx context.Context, js jetstream.JetStream, opts ...StoreOption) (*Store, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream required")
	}

	s := &Store{
		ttl:    DefaultSessionTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// CreateOrUpdateKeyValue is idempotent and handles race conditions.
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      SessionsBucket,
		Description: "Conversation session snapshots",
		TTL:         s.ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}
	s.bucket = bucket
	return s, nil
}

// NewStoreWithBucket wraps an existing bucket, used by tests.
func NewStoreWithBucket(bucket KeyValue, opts ...StoreOption) *Store {
	s := &Store{
		bucket: bucket,
		ttl:    DefaultSessionTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the snapshot for a session id, stamping UpdatedAt.
func (s *Store) Save(ctx context.Context, id string, snap Snapshot) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	snap.UpdatedAt = s.now()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.bucket.Put(ctx, id, data); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// SaveAsync persists in the background, logging failures. Used on the
// streaming hot path where persistence must never block or fail a turn.
func (s *Store) SaveAsync(id string, snap Snapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Save(ctx, id, snap); err != nil {
			s.logger.Warn("Session save failed", "session", id, "error", err)
		}
	}()
}

// Load reads the snapshot for a session id. Returns ErrNotFound when
// the session has never been saved or has expired.
func (s *Store) Load(ctx context.Context, id string) (*Snapshot, error) {
	entry, err := s.bucket.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(entry.Value(), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes a session snapshot. Deleting an absent session is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.bucket.Delete(ctx, id); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
