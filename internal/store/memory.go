// Package store provides archive storage backends for trendpilot.
//
// This file implements the in-memory archive used when no database DSN is
// configured, and in tests.
package store

import (
	"sync"

	"github.com/mbarki/trendpilot/internal/models"
)

// MaxErrorsKept caps how many error records the in-memory archive retains.
const MaxErrorsKept = 100

// InMemoryStore is a volatile archive backend.
type InMemoryStore struct {
	mu     sync.Mutex
	errors []models.ErrorRecord
	posts  []models.PostRecord
}

// NewInMemoryStore creates an empty in-memory archive.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) RecordError(rec models.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, rec)
	if len(s.errors) > MaxErrorsKept {
		s.errors = s.errors[len(s.errors)-MaxErrorsKept:]
	}
	return nil
}

func (s *InMemoryStore) RecentErrors(n int) ([]models.ErrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.errors) {
		n = len(s.errors)
	}
	out := make([]models.ErrorRecord, 0, n)
	for i := len(s.errors) - 1; i >= len(s.errors)-n; i-- {
		out = append(out, s.errors[i])
	}
	return out, nil
}

func (s *InMemoryStore) RecordPost(rec models.PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, rec)
	return nil
}

func (s *InMemoryStore) RecentPosts(n int) ([]models.PostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.posts) {
		n = len(s.posts)
	}
	out := make([]models.PostRecord, 0, n)
	for i := len(s.posts) - 1; i >= len(s.posts)-n; i-- {
		out = append(out, s.posts[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
