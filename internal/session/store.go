// Package session holds combined multi-document extraction results between
// requests so later uploads can be appended to an earlier submission.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hematrace/labxtract/internal/extract"
)

// ErrNotFound means an append referenced a session identifier this store
// does not know. The caller rejects the request without mutating anything.
var ErrNotFound = errors.New("session not found")

// Entry is one session's accumulated state.
type Entry struct {
	Combined  *extract.Result
	Documents []string
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory session registry with TTL eviction, so
// abandoned sessions do not accumulate for the process lifetime.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
	}
}

// Create stores a new session and returns its identifier.
func (s *Store) Create(combined *extract.Result, documents []string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &Entry{
		Combined:  combined,
		Documents: append([]string(nil), documents...),
		UpdatedAt: time.Now(),
	}
	return id
}

// Get returns a snapshot of a session's state.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{
		Combined:  e.Combined,
		Documents: append([]string(nil), e.Documents...),
		UpdatedAt: e.UpdatedAt,
	}, nil
}

// Append merges more documents into an existing session and returns the
// updated snapshot. Unknown sessions are rejected without mutation.
func (s *Store) Append(id string, combined *extract.Result, documents []string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Combined = extract.Merge(e.Combined, combined)
	e.Documents = append(e.Documents, documents...)
	e.UpdatedAt = time.Now()
	return Entry{
		Combined:  e.Combined,
		Documents: append([]string(nil), e.Documents...),
		UpdatedAt: e.UpdatedAt,
	}, nil
}

// Cleanup removes expired sessions.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.entries {
		if now.Sub(e.UpdatedAt) > s.ttl {
			delete(s.entries, id)
		}
	}
}

// StartCleanup runs Cleanup on a ticker until ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
