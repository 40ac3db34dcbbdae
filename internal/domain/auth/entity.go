// internal/domain/auth/entity.go
package auth

import "time"

// Mode selects how an authenticated admin is remembered.
type Mode string

const (
	// ModeSession keeps a server-side session referenced by a cookie.
	ModeSession Mode = "session"
	// ModeToken issues a signed token that is re-verified on every request.
	ModeToken Mode = "token"
)

func (m Mode) Valid() bool {
	return m == ModeSession || m == ModeToken
}

// Principal is the authenticated admin behind a request.
type Principal struct {
	Subject      string    `json:"subject"`
	Mode         Mode      `json:"mode"`
	CredentialID string    `json:"credential_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}
