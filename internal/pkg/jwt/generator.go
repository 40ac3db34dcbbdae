// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const RoleAdmin = "admin"

type Generator struct {
	method   jwt.SigningMethod
	key      any
	issuer   string
	audience string
	kid      string // key id for rotation
	Ttl      time.Duration
}

func NewGenerator(method jwt.SigningMethod, key any, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		method:   method,
		key:      key,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		Ttl:      ttl,
	}
}

// Token is a signed token together with its id and expiry.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Generate signs a new admin token for subject
func (g *Generator) Generate(subject string) (*Token, error) {
	if g.key == nil {
		return nil, fmt.Errorf("jwt generator has nil signing key")
	}

	now := time.Now()
	jti := ulid.Make().String()
	expiresAt := now.Add(g.Ttl)

	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   subject,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(g.method, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{Value: signed, ID: jti, ExpiresAt: expiresAt}, nil
}
