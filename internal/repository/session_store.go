package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/triage/internal/domain"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *domain.Session
}

// SessionStore keeps intake sessions in memory for the process lifetime.
// The map lock is held only for lookup, insert and delete; each session has
// its own lock so work on different sessions never serializes.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// Create stores a new session. An empty ID is generated.
func (s *SessionStore) Create(session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Answers == nil {
		session.Answers = make(map[int]string)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &sessionEntry{session: session.Clone()}
	return nil
}

// Get returns a copy of the session
func (s *SessionStore) Get(id string) (*domain.Session, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Update runs fn on the stored session while holding that session's lock.
// fn may mutate the session; when it returns an error the session is left
// as fn found it.
func (s *SessionStore) Update(id string, fn func(*domain.Session) error) (*domain.Session, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.session.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.session = work
	return work.Clone(), nil
}

// Delete removes a session
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// SweepExpired removes sessions created before cutoff and returns how many
func (s *SessionStore) SweepExpired(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		expired := e.session.CreatedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close drops every session
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*sessionEntry)
	return nil
}

func (s *SessionStore) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return e, nil
}
