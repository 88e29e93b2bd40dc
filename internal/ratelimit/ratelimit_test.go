package ratelimit

import (
	"testing"
	"time"
)

// fixedClock lets tests advance time manually.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(opts ...Option) (*Limiter, *fixedClock) {
	l := NewLimiter(opts...)
	clock := &fixedClock{t: time.Unix(1700000000, 0)}
	l.now = clock.now
	return l, clock
}

func TestLimiterDeniesAfterMaxRequests(t *testing.T) {
	l, _ := newTestLimiter(WithMaxRequests(3), WithWindow(60*time.Second))
	const user = int64(42)

	for i := 0; i < 3; i++ {
		if !l.IsAllowed(user) {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}
	if l.IsAllowed(user) {
		t.Errorf("request 4: expected denied")
	}
}

func TestLimiterAllowsAfterWindowElapses(t *testing.T) {
	l, clock := newTestLimiter(WithMaxRequests(2), WithWindow(60*time.Second))
	const user = int64(7)

	l.IsAllowed(user)
	clock.advance(10 * time.Second)
	l.IsAllowed(user)
	if l.IsAllowed(user) {
		t.Fatalf("expected denial at limit")
	}

	// First request falls out of the window after 60s from its timestamp.
	clock.advance(51 * time.Second)
	if !l.IsAllowed(user) {
		t.Errorf("expected allowance after window elapsed from first request")
	}
}

func TestWaitSeconds(t *testing.T) {
	l, clock := newTestLimiter(WithMaxRequests(1), WithWindow(60*time.Second))
	const user = int64(9)

	if got := l.WaitSeconds(user); got != 0 {
		t.Errorf("expected 0 wait for unknown user, got %d", got)
	}

	l.IsAllowed(user)
	clock.advance(20 * time.Second)
	if got := l.WaitSeconds(user); got != 40 {
		t.Errorf("expected 40s wait, got %d", got)
	}

	clock.advance(45 * time.Second)
	if got := l.WaitSeconds(user); got != 0 {
		t.Errorf("expected 0 wait after window elapsed, got %d", got)
	}
}

func TestLimiterIsolatesUsers(t *testing.T) {
	l, _ := newTestLimiter(WithMaxRequests(1), WithWindow(60*time.Second))

	if !l.IsAllowed(1) {
		t.Fatalf("user 1 first request should be allowed")
	}
	if l.IsAllowed(1) {
		t.Fatalf("user 1 second request should be denied")
	}
	if !l.IsAllowed(2) {
		t.Errorf("user 2 should not be affected by user 1's window")
	}
}
