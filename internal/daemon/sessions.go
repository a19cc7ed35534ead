package daemon

import (
	"errors"
	"fmt"
	"sync"

	"conveyor/internal/logging"
	"conveyor/internal/review"
)

// ErrSessionNotFound is returned when a session id is unknown or already closed.
var ErrSessionNotFound = errors.New("session not found")

// sessionSet tracks the live review sessions keyed by id.
type sessionSet struct {
	mu       sync.Mutex
	sessions map[string]*review.Session
}

func newSessionSet() *sessionSet {
	return &sessionSet{sessions: make(map[string]*review.Session)}
}

func (s *sessionSet) add(session *review.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *sessionSet) get(id string) (*review.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *sessionSet) remove(id string) (*review.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return session, ok
}

// drain removes and returns every live session.
func (s *sessionSet) drain() []*review.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*review.Session, 0, len(s.sessions))
	for id, session := range s.sessions {
		out = append(out, session)
		delete(s.sessions, id)
	}
	return out
}

// OpenSession creates a review session bound to the daemon's shared services.
// Each session owns its own selection, undo queue, and batch tracker; actorID
// attributes the session's operations in the audit log.
func (d *Daemon) OpenSession(actorID string) (string, error) {
	if !d.running.Load() {
		return "", errors.New("daemon is not running")
	}
	session := review.NewSession(d.runCtx, review.Deps{
		Store:    d.store,
		Recorder: d.recorder,
		Service:  d.service,
		Hub:      d.hub,
		Config:   d.cfg,
		Logger:   d.logger,
	}, actorID)
	d.sessions.add(session)
	d.logger.Info("review session opened",
		logging.String("session_id", session.ID()))
	return session.ID(), nil
}

// Session returns the live session for id.
func (d *Daemon) Session(id string) (*review.Session, error) {
	session, ok := d.sessions.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// CloseSession releases a session and its tracker.
func (d *Daemon) CloseSession(id string) error {
	session, ok := d.sessions.remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.Close()
	d.logger.Info("review session closed", logging.String("session_id", id))
	return nil
}
