// Package session provides per-user conversational state with expiry.
//
// State is in-memory and intentionally volatile: a process restart clears
// every session. The archive store never holds session data.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mbarki/trendpilot/internal/models"
)

// State identifies where a user is in the discover→select→publish flow.
type State string

const (
	// StateIdle is the initial and post-publish state.
	StateIdle State = "idle"
	// StateTrendSelection means trends were offered and a numeric reply is expected.
	StateTrendSelection State = "trend_selection"
	// StateContentReady means generated content awaits preview or publish.
	StateContentReady State = "content_ready"
)

// DefaultTimeout is how long an inactive session survives before a sweep
// removes it.
const DefaultTimeout = 1800 * time.Second

// Data holds whichever payloads apply to the current state.
type Data struct {
	Trends        []models.Trend
	SelectedTrend *models.Trend
	Content       *models.GeneratedContent
	Research      *models.ResearchResult
	ImageBytes    []byte
}

// Session is one user's conversational state.
type Session struct {
	State        State
	Data         Data
	LastActivity time.Time
}

// Opts holds configuration options for the session store.
type Opts struct {
	Timeout time.Duration
}

// Option defines a configuration option for the session store.
type Option func(*Opts)

// WithTimeout sets the inactivity timeout after which sessions expire.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// Store keeps sessions keyed by chat id.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	timeout  time.Duration
	now      func() time.Time
}

// NewStore creates a session store, applying any provided options.
func NewStore(opts ...Option) *Store {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating session store", "timeout", cfg.Timeout)
	return &Store{
		sessions: make(map[int64]*Session),
		timeout:  cfg.Timeout,
		now:      time.Now,
	}
}

// Get returns a copy of the user's session, if one exists.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Put replaces the user's session with the given state and data, stamping
// activity at now.
func (s *Store) Put(userID int64, state State, data Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &Session{State: state, Data: data, LastActivity: s.now()}
	slog.Debug("Session updated", "user_id", userID, "state", state)
}

// Reset returns the user to a fresh idle session. This is the universal
// recovery operation exposed to users.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &Session{State: StateIdle, LastActivity: s.now()}
	slog.Info("Session reset", "user_id", userID)
}

// Touch updates the user's last-activity timestamp if a session exists.
func (s *Store) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.LastActivity = s.now()
	}
}

// CacheImage stores rendered image bytes on an existing session so publish
// can reuse a previewed image. Returns false when no session exists.
func (s *Store) CacheImage(userID int64, img []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	sess.Data.ImageBytes = img
	return true
}

// SweepExpired removes every session whose last activity is older than the
// timeout, returning how many were removed. Invoked periodically by the
// dispatch loop, not on every event.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.timeout {
			delete(s.sessions, id)
			removed++
			slog.Info("Cleaned expired session", "user_id", id)
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
