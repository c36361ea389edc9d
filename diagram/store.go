package diagram

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Default animation timing. Cosmetic constants, not correctness
// requirements.
const (
	DefaultRevealDelay            = 300 * time.Millisecond
	DefaultConnectionRecheckDelay = 600 * time.Millisecond
	DefaultCommentaryTTL          = 4 * time.Second
)

// NodeSpec is the model-supplied part of a node; layout and reveal state
// are assigned by the store.
type NodeSpec struct {
	ID          string
	Label       string
	Type        NodeType
	Icon        string
	Description string
}

// ConnectionSpec is the model-supplied part of a connection.
type ConnectionSpec struct {
	From  string
	To    string
	Label string
}

// Commentary is the transient overlay message floated over the diagram.
type Commentary struct {
	Text string
	seq  int
}

// Store is the session-scoped diagram state. One writer (the chat
// dispatch path) mutates it; UI observers read snapshots. All mutations
// are serialized behind a mutex because reveal propagation reads
// connections and writes them in the same step.
type Store struct {
	mu         sync.Mutex
	nodes      []Node
	conns      []Connection
	commentary *Commentary

	connSeq       int
	commentarySeq int

	// gen invalidates outstanding timers across Reset: a timer scheduled
	// against an old generation must not mutate the cleared state.
	gen int

	sched         Scheduler
	revealDelay   time.Duration
	recheckDelay  time.Duration
	commentaryTTL time.Duration
	logger        *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithScheduler sets the deferred-call scheduler.
func WithScheduler(s Scheduler) StoreOption {
	return func(st *Store) {
		st.sched = s
	}
}

// WithRevealDelay sets the node entrance-animation delay.
func WithRevealDelay(d time.Duration) StoreOption {
	return func(st *Store) {
		st.revealDelay = d
	}
}

// WithConnectionRecheckDelay sets the fallback delay after which a new
// connection re-checks its endpoints.
func WithConnectionRecheckDelay(d time.Duration) StoreOption {
	return func(st *Store) {
		st.recheckDelay = d
	}
}

// WithCommentaryTTL sets the commentary display window.
func WithCommentaryTTL(d time.Duration) StoreOption {
	return func(st *Store) {
		st.commentaryTTL = d
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(st *Store) {
		st.logger = logger
	}
}

// NewStore creates an empty diagram store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sched:         NewTimerScheduler(),
		revealDelay:   DefaultRevealDelay,
		recheckDelay:  DefaultConnectionRecheckDelay,
		commentaryTTL: DefaultCommentaryTTL,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNode inserts a hidden node at its deterministic layout slot. A
// duplicate id is ignored; ids are chosen by the model and unique within
// a session by convention.
func (s *Store) AddNode(spec NodeSpec) Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOfNode(spec.ID); i >= 0 {
		s.logger.Debug("Ignoring duplicate node", "id", spec.ID)
		return s.nodes[i]
	}

	countOfType := 0
	for _, n := range s.nodes {
		if n.Type == spec.Type {
			countOfType++
		}
	}
	x, y := NodePosition(spec.Type, countOfType)

	icon := spec.Icon
	if icon == "" {
		icon = fallbackIcons[spec.Type]
	}

	node := Node{
		ID:          spec.ID,
		Label:       spec.Label,
		Type:        spec.Type,
		Icon:        icon,
		Description: spec.Description,
		X:           x,
		Y:           y,
		Revealed:    false,
	}
	s.nodes = append(s.nodes, node)
	return node
}

// ScheduleReveal reveals the node after the entrance-animation delay.
func (s *Store) ScheduleReveal(id string) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	s.sched.AfterFunc(s.revealDelay, func() {
		if !s.sameGeneration(gen) {
			return
		}
		s.RevealNode(id)
	})
}

// RevealNode marks a node revealed and propagates to every connection
// touching it: a connection whose other endpoint is already revealed
// becomes revealed now rather than waiting for its fallback timer.
// Idempotent; reveal state only ever transitions false to true.
func (s *Store) RevealNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfNode(id)
	if i < 0 {
		return
	}
	s.nodes[i].Revealed = true

	for ci := range s.conns {
		c := &s.conns[ci]
		if c.Revealed {
			continue
		}
		if c.From != id && c.To != id {
			continue
		}
		other := c.From
		if other == id {
			other = c.To
		}
		if j := s.indexOfNode(other); j >= 0 && s.nodes[j].Revealed {
			c.Revealed = true
		}
	}
}

// AddConnection inserts a connection with a freshly allocated id. It is
// revealed immediately if both endpoints are already revealed; otherwise
// a delayed re-check converges it once the endpoints arrive. Endpoints
// that never exist leave the connection permanently unrevealed, which is
// an acceptable degraded state, not an error.
func (s *Store) AddConnection(spec ConnectionSpec) Connection {
	s.mu.Lock()

	s.connSeq++
	conn := Connection{
		ID:       fmt.Sprintf("conn-%d", s.connSeq),
		From:     spec.From,
		To:       spec.To,
		Label:    spec.Label,
		Revealed: s.bothRevealedLocked(spec.From, spec.To),
	}
	s.conns = append(s.conns, conn)
	gen := s.gen
	id := conn.ID

	s.mu.Unlock()

	if !conn.Revealed {
		s.sched.AfterFunc(s.recheckDelay, func() {
			if !s.sameGeneration(gen) {
				return
			}
			s.recheckConnection(id)
		})
	}
	return conn
}

// recheckConnection flips a connection revealed if both endpoints are
// revealed by now. Re-reads current state so it is safe against resets
// and replaced ids.
func (s *Store) recheckConnection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.conns {
		if s.conns[i].ID != id {
			continue
		}
		if !s.conns[i].Revealed && s.bothRevealedLocked(s.conns[i].From, s.conns[i].To) {
			s.conns[i].Revealed = true
		}
		return
	}
}

func (s *Store) bothRevealedLocked(from, to string) bool {
	fi := s.indexOfNode(from)
	ti := s.indexOfNode(to)
	return fi >= 0 && ti >= 0 && s.nodes[fi].Revealed && s.nodes[ti].Revealed
}

// UpdateNodeImage sets a node's generated illustration. No effect on
// reveal state.
func (s *Store) UpdateNodeImage(id, imageURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOfNode(id); i >= 0 {
		s.nodes[i].ImageURL = imageURL
	}
}

// UpdateNodePosition moves a node, typically from a user drag.
func (s *Store) UpdateNodePosition(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOfNode(id); i >= 0 {
		s.nodes[i].X = x
		s.nodes[i].Y = y
	}
}

// SetCommentary shows a transient overlay message and schedules its
// auto-clear. A newer commentary supersedes the pending clear of an
// older one.
func (s *Store) SetCommentary(text string) {
	s.mu.Lock()
	s.commentarySeq++
	seq := s.commentarySeq
	gen := s.gen
	s.commentary = &Commentary{Text: text, seq: seq}
	s.mu.Unlock()

	s.sched.AfterFunc(s.commentaryTTL, func() {
		if !s.sameGeneration(gen) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.commentary != nil && s.commentary.seq == seq {
			s.commentary = nil
		}
	})
}

// ClearCommentary removes the overlay immediately.
func (s *Store) ClearCommentary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentary = nil
}

// Commentary returns the current overlay text, if any.
func (s *Store) Commentary() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commentary == nil {
		return "", false
	}
	return s.commentary.Text, true
}

// Node returns a node by id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfNode(id); i >= 0 {
		return s.nodes[i], true
	}
	return Node{}, false
}

// Nodes returns a copy of all nodes in creation order.
func (s *Store) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Connections returns a copy of all connections in creation order.
func (s *Store) Connections() []Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Connection, len(s.conns))
	copy(out, s.conns)
	return out
}

// Reset clears nodes, connections, and commentary, and resets the
// connection id counter so ids are stable across sessions. Outstanding
// timers from before the reset become no-ops.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.conns = nil
	s.commentary = nil
	s.connSeq = 0
	s.gen++
}

func (s *Store) sameGeneration(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Store) indexOfNode(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}
