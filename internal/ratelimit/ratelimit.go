// Package ratelimit provides sliding-window admission control per user.
//
// Each user gets an independent window of request timestamps; checks for
// different users never contend beyond the map lookup.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Default limiter configuration
const (
	// DefaultMaxRequests is the maximum number of requests per window
	DefaultMaxRequests = 10
	// DefaultWindow is the trailing admission window
	DefaultWindow = 60 * time.Second
)

// Opts holds configuration options for the limiter.
type Opts struct {
	MaxRequests int
	Window      time.Duration
}

// Option defines a configuration option for the limiter.
type Option func(*Opts)

// WithMaxRequests sets the maximum number of requests per window.
func WithMaxRequests(n int) Option {
	return func(o *Opts) {
		o.MaxRequests = n
	}
}

// WithWindow sets the trailing admission window duration.
func WithWindow(d time.Duration) Option {
	return func(o *Opts) {
		o.Window = d
	}
}

// Limiter applies a sliding-window rate limit per user identity.
type Limiter struct {
	mu          sync.Mutex
	windows     map[int64][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewLimiter creates a limiter, applying any provided options.
func NewLimiter(opts ...Option) *Limiter {
	cfg := Opts{MaxRequests: DefaultMaxRequests, Window: DefaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating rate limiter", "max_requests", cfg.MaxRequests, "window", cfg.Window)
	return &Limiter{
		windows:     make(map[int64][]time.Time),
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
		now:         time.Now,
	}
}

// IsAllowed reports whether the user may make a request now. An allowed
// check consumes one slot in the user's window.
func (l *Limiter) IsAllowed(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := l.prune(userID, now)

	if len(window) >= l.maxRequests {
		slog.Debug("Rate limit exceeded", "user_id", userID, "requests", len(window))
		l.windows[userID] = window
		return false
	}

	l.windows[userID] = append(window, now)
	return true
}

// WaitSeconds returns how many seconds the user must wait until the oldest
// tracked request leaves the window, floored at zero.
func (l *Limiter) WaitSeconds(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := l.prune(userID, now)
	l.windows[userID] = window

	if len(window) == 0 {
		return 0
	}
	wait := l.window - now.Sub(window[0])
	if wait < 0 {
		return 0
	}
	return int(wait.Seconds())
}

// prune drops timestamps older than the window. Caller must hold the lock.
func (l *Limiter) prune(userID int64, now time.Time) []time.Time {
	window := l.windows[userID]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	return window[i:]
}
