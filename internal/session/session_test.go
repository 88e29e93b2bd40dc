package session

import (
	"testing"
	"time"

	"github.com/mbarki/trendpilot/internal/models"
)

func TestGetUnknownUser(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get(1); ok {
		t.Errorf("expected no session for unknown user")
	}
}

func TestPutAndGet(t *testing.T) {
	s := NewStore()
	trends := []models.Trend{{Title: "t", Summary: "s", EmotionalAngle: "e", Origin: models.OriginGlobal}}
	s.Put(5, StateTrendSelection, Data{Trends: trends})

	sess, ok := s.Get(5)
	if !ok {
		t.Fatalf("expected session after Put")
	}
	if sess.State != StateTrendSelection {
		t.Errorf("expected trend_selection state, got %s", sess.State)
	}
	if len(sess.Data.Trends) != 1 {
		t.Errorf("expected stored trends, got %d", len(sess.Data.Trends))
	}
}

func TestResetIdempotence(t *testing.T) {
	s := NewStore()
	s.Put(3, StateContentReady, Data{Content: &models.GeneratedContent{BodyText: "x"}})

	for i := 0; i < 2; i++ {
		s.Reset(3)
		sess, ok := s.Get(3)
		if !ok {
			t.Fatalf("reset %d: expected session to exist", i+1)
		}
		if sess.State != StateIdle {
			t.Errorf("reset %d: expected idle, got %s", i+1, sess.State)
		}
		if sess.Data.Content != nil || sess.Data.Trends != nil || sess.Data.ImageBytes != nil {
			t.Errorf("reset %d: expected empty data, got %+v", i+1, sess.Data)
		}
	}
}

func TestSweepExpired(t *testing.T) {
	s := NewStore(WithTimeout(30 * time.Minute))
	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }
	s.Put(1, StateIdle, Data{})
	s.Put(2, StateIdle, Data{})

	// User 2 stays active.
	s.now = func() time.Time { return base.Add(29 * time.Minute) }
	s.Touch(2)

	removed := s.SweepExpired(base.Add(31 * time.Minute))
	if removed != 1 {
		t.Fatalf("expected 1 expired session, got %d", removed)
	}
	if _, ok := s.Get(1); ok {
		t.Errorf("expected user 1 session to be swept")
	}
	if _, ok := s.Get(2); !ok {
		t.Errorf("expected user 2 session to survive")
	}
}

func TestCacheImage(t *testing.T) {
	s := NewStore()
	if s.CacheImage(8, []byte{1}) {
		t.Errorf("expected CacheImage to fail without a session")
	}
	s.Put(8, StateContentReady, Data{Content: &models.GeneratedContent{BodyText: "x"}})
	if !s.CacheImage(8, []byte{1, 2, 3}) {
		t.Fatalf("expected CacheImage to succeed")
	}
	sess, _ := s.Get(8)
	if len(sess.Data.ImageBytes) != 3 {
		t.Errorf("expected cached image bytes, got %d", len(sess.Data.ImageBytes))
	}
}

func TestTouchWithoutSessionIsNoop(t *testing.T) {
	s := NewStore()
	s.Touch(99)
	if s.Len() != 0 {
		t.Errorf("expected Touch not to create sessions")
	}
}
