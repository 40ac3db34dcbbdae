// internal/pkg/session/types.go
package session

import "time"

// SessionData is one authenticated admin session.
type SessionData struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (s *SessionData) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
