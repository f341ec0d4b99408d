package api

import (
	"sync"

	"complaintbot/internal/domain"
	"complaintbot/internal/session"
)

// sessionStore keeps active dialogue sessions in memory. A session is
// checked out for the duration of one request; concurrent requests for the
// same session conflict instead of interleaving analyzer calls.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*storedSession
}

type storedSession struct {
	sess *session.Session
	busy bool
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*storedSession)}
}

// putBusy registers a session already checked out by its creator. The
// creating request must release it, whether or not the first analysis
// succeeded; keeping a failed session around lets the client retry it.
func (s *sessionStore) putBusy(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &storedSession{sess: sess, busy: true}
}

// checkout hands out exclusive access to one session until release is
// called. A busy session yields ErrConflict, which also rules out a double
// submit racing itself.
func (s *sessionStore) checkout(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if entry.busy {
		return nil, domain.ErrConflict
	}
	entry.busy = true
	return entry.sess, nil
}

func (s *sessionStore) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[id]; ok {
		entry.busy = false
	}
}

func (s *sessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
