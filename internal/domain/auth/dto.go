// internal/domain/auth/dto.go
package auth

import "time"

// LoginRequest carries the shared admin secret
type LoginRequest struct {
	Password  string `json:"password" form:"password" binding:"required"`
	IPAddress string `json:"-" form:"-"`
	UserAgent string `json:"-" form:"-"`
}

// LoginResponse successful login response. In session mode the credential
// travels in a cookie and Token is empty.
type LoginResponse struct {
	Mode      Mode      `json:"mode"`
	Token     string    `json:"token,omitempty"`
	TokenType string    `json:"token_type,omitempty"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`

	SessionID string `json:"-"`
}
