// Package memory is the default in-process session store. Sessions are lost
// on restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/store"
)

var _ store.Sessions = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]domain.Session)}
}

func (s *Store) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	return clone(sess), nil
}

func (s *Store) Set(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *Store) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	if at.After(sess.LastActivity) {
		sess.LastActivity = at
		s.sessions[id] = sess
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok, nil
}

func (s *Store) DeleteByUser(_ context.Context, userID string) ([]domain.Session, error) {
	return s.deleteWhere(func(sess domain.Session) bool { return sess.UserID == userID }), nil
}

func (s *Store) DeleteIdle(_ context.Context, cutoff time.Time) ([]domain.Session, error) {
	return s.deleteWhere(func(sess domain.Session) bool { return sess.LastActivity.Before(cutoff) }), nil
}

func (s *Store) deleteWhere(match func(domain.Session) bool) []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []domain.Session
	for id, sess := range s.sessions {
		if match(sess) {
			removed = append(removed, sess)
			delete(s.sessions, id)
		}
	}
	return removed
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	s.mu.RLock()
	out := make([]domain.Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, clone(sess))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Session) int {
		return b.LastActivity.Compare(a.LastActivity)
	})
	return out, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// clone copies the slices so callers cannot mutate stored state.
func clone(sess domain.Session) domain.Session {
	sess.Roles = slices.Clone(sess.Roles)
	sess.Permissions = slices.Clone(sess.Permissions)
	if sess.DeviceInfo.Location != nil {
		loc := *sess.DeviceInfo.Location
		sess.DeviceInfo.Location = &loc
	}
	return sess
}
