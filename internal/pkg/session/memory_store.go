package session

import (
	"context"
	"sync"
	"time"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
)

// MemoryStore is the single-process fallback used when no Redis is
// configured. Sessions do not survive a restart.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]SessionData
	blacklist map[string]time.Time
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]SessionData),
		blacklist: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sess *SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, xerrors.ErrSessionExpired
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, xerrors.ErrSessionExpired
	}
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[jti] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.blacklist[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.blacklist, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
		}
	}
	for jti, until := range s.blacklist {
		if !now.Before(until) {
			delete(s.blacklist, jti)
		}
	}
}
