package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// UserSession is one user's quiz session. Hold Lock while touching Quiz.
type UserSession struct {
	ID        string // attempt ID, renewed on every start
	UserID    string
	Channel   string
	Quiz      *quiz.Session
	UpdatedAt time.Time

	mu sync.Mutex
}

func (u *UserSession) Lock()   { u.mu.Lock() }
func (u *UserSession) Unlock() { u.mu.Unlock() }

// renew assigns a new attempt ID.
func (u *UserSession) renew() {
	u.ID = uuid.NewString()
}

// SessionStore keeps one quiz session per user in memory.
type SessionStore struct {
	catalog  *quiz.Catalog
	sessions map[string]*UserSession
	mu       sync.RWMutex
}

// NewSessionStore creates an empty store whose sessions run over catalog.
func NewSessionStore(catalog *quiz.Catalog) *SessionStore {
	return &SessionStore{
		catalog:  catalog,
		sessions: make(map[string]*UserSession),
	}
}

// GetOrCreate returns the user's session, creating an idle one if needed.
func (s *SessionStore) GetOrCreate(userID string) *UserSession {
	s.mu.RLock()
	us, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return us
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if us, ok := s.sessions[userID]; ok {
		return us
	}
	us = &UserSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Quiz:      quiz.NewSession(s.catalog),
		UpdatedAt: time.Now(),
	}
	s.sessions[userID] = us
	return us
}

// Acquire returns the user's session locked and marked as used. The caller
// must Unlock it. A session pruned before the lock was taken is replaced.
func (s *SessionStore) Acquire(userID string) *UserSession {
	for {
		us := s.GetOrCreate(userID)
		us.Lock()
		if cur, ok := s.Get(userID); ok && cur == us {
			us.UpdatedAt = time.Now()
			return us
		}
		us.Unlock()
	}
}

// Get returns the user's session if one exists.
func (s *SessionStore) Get(userID string) (*UserSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	us, ok := s.sessions[userID]
	return us, ok
}

// Delete drops the user's session.
func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of sessions held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneIdle drops sessions not touched since now-maxAge and returns how many went.
func (s *SessionStore) PruneIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, us := range s.sessions {
		if !us.mu.TryLock() {
			continue // in use
		}
		if us.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			pruned++
		}
		us.mu.Unlock()
	}
	return pruned
}
