// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"time"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

const AdminSubject = "admin"

type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

func (m *Manager) TTL() time.Duration { return m.ttl }
func (m *Manager) Store() Store       { return m.store }

// CreateSession opens a new admin session.
func (m *Manager) CreateSession(ctx context.Context, ip, userAgent string) (*SessionData, error) {
	now := m.now()
	sess := &SessionData{
		ID:             ulid.Make().String(),
		Subject:        AdminSubject,
		IPAddress:      ip,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession returns the live session for id.
func (m *Manager) GetSession(ctx context.Context, id string) (*SessionData, error) {
	if id == "" {
		return nil, xerrors.ErrSessionExpired
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(m.now()) {
		return nil, xerrors.ErrSessionExpired
	}
	return sess, nil
}

func (m *Manager) InvalidateSession(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// BlacklistToken revokes a token id until it would have expired anyway.
func (m *Manager) BlacklistToken(ctx context.Context, jti string, expiresAt time.Time) error {
	return m.store.Blacklist(ctx, jti, expiresAt.Sub(m.now()))
}

func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	return m.store.IsBlacklisted(ctx, jti)
}
