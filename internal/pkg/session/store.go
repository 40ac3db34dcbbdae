package session

import (
	"context"
	"time"
)

// Store persists sessions and revoked token ids. Entries vanish on their own
// once their TTL passes.
type Store interface {
	Save(ctx context.Context, s *SessionData) error
	// Get returns xerrors.ErrSessionExpired when the session is unknown.
	Get(ctx context.Context, id string) (*SessionData, error)
	Delete(ctx context.Context, id string) error
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// LoginLimiter counts login attempts per client address.
type LoginLimiter interface {
	// CheckLoginAttempt records an attempt and reports whether it is allowed
	// together with the attempts left in the window.
	CheckLoginAttempt(ctx context.Context, ip string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip string) error
}

const (
	MaxLoginAttempts   = 5
	LoginAttemptWindow = 15 * time.Minute
)
