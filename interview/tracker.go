package interview

import (
	"log/slog"
	"sync"
)

// Tracker holds the current interview stage and the accumulated user
// profile for one session. One writer (the chat dispatch path) mutates
// it; UI observers read snapshots.
type Tracker struct {
	mu      sync.Mutex
	stage   Stage
	profile Profile
	logger  *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger.
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker returns a tracker at the default stage with an empty
// profile.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		stage:   DefaultStage,
		profile: NewProfile(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetStage records the new stage. Any value is accepted; unrecognized
// stages are logged and stored as-is so a surprising model output
// degrades to an odd label rather than a stuck surface.
func (t *Tracker) SetStage(s Stage) {
	if !KnownStage(s) {
		t.logger.Warn("Accepting unrecognized interview stage", "stage", string(s))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = s
}

// Stage returns the current stage.
func (t *Tracker) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// UpdateProfile merges a partial update into the profile. Set fields
// win over existing values; lists are replaced wholesale.
func (t *Tracker) UpdateProfile(u ProfileUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profile.apply(u)
}

// SetProfile replaces the whole profile, used when restoring a session.
func (t *Tracker) SetProfile(p Profile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profile = p
}

// Profile returns a snapshot of the accumulated profile.
func (t *Tracker) Profile() Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.profile
	p.DesiredOutcomes = append([]string(nil), t.profile.DesiredOutcomes...)
	p.PainPoints = append([]string(nil), t.profile.PainPoints...)
	p.CurrentTools = append([]string(nil), t.profile.CurrentTools...)
	p.DataSources = append([]string(nil), t.profile.DataSources...)
	return p
}

// Reset returns the tracker to the default stage and an empty profile.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = DefaultStage
	t.profile = NewProfile()
}
