// Package session stores live quiz sessions keyed by the opaque
// identifier carried in the participant's cookie.
package session

import (
	"sync"

	"github.com/santhoshgo28/kt-quiz/internal/model"
)

// Store is the session storage contract used by the quiz controller.
type Store interface {
	Get(id string) (*model.Session, bool)
	Put(id string, sess *model.Session)
	Delete(id string)
	// FindByParticipant returns the live session for a participant name,
	// if any. Used to resume a session on repeated start.
	FindByParticipant(name string) (*model.Session, bool)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.Session)}
}

func (s *MemoryStore) Get(id string) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *MemoryStore) Put(id string, sess *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemoryStore) FindByParticipant(name string) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Participant == name && sess.State == model.StateInProgress {
			return sess, true
		}
	}
	return nil, false
}
