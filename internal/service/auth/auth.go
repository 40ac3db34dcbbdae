// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/auth"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/jwt"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService guards the admin surface with one shared secret.
type AuthService struct {
	mode           auth.Mode
	secretHash     []byte
	sessionManager *session.Manager
	jwtManager     *jwt.Manager
	rateLimiter    session.LoginLimiter
	logger         *zap.Logger
}

func NewAuthService(
	mode auth.Mode,
	secretHash []byte,
	sessionManager *session.Manager,
	jwtManager *jwt.Manager,
	rateLimiter session.LoginLimiter,
	logger *zap.Logger,
) (*AuthService, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	if _, err := bcrypt.Cost(secretHash); err != nil {
		return nil, fmt.Errorf("admin secret hash is not a bcrypt hash: %w", err)
	}
	if sessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if mode == auth.ModeToken && jwtManager == nil {
		return nil, fmt.Errorf("token mode requires a jwt manager")
	}

	return &AuthService{
		mode:           mode,
		secretHash:     secretHash,
		sessionManager: sessionManager,
		jwtManager:     jwtManager,
		rateLimiter:    rateLimiter,
		logger:         logger,
	}, nil
}

func (s *AuthService) Mode() auth.Mode { return s.mode }

// HashSecret produces the bcrypt hash stored in ADMIN_SECRET_HASH.
func HashSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("admin secret must not be empty")
	}
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}

// Login checks the shared secret and opens a session or issues a token.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	// Rate limiting
	remaining := int64(session.MaxLoginAttempts)
	if s.rateLimiter != nil {
		allowed, left, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.logger.Warn("login rate limited", zap.String("ip", req.IPAddress))
			return nil, fmt.Errorf("%w: too many login attempts, please try again in 15 minutes", xerrors.ErrRateLimited)
		} else {
			remaining = left
		}
	}

	// Constant time comparison
	if err := bcrypt.CompareHashAndPassword(s.secretHash, []byte(req.Password)); err != nil {
		s.logger.Warn("admin login failed", zap.String("ip", req.IPAddress))
		return nil, fmt.Errorf("%w: invalid credentials (attempts remaining: %d)", xerrors.ErrUnauthorized, remaining)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	if s.mode == auth.ModeToken {
		return s.issueToken()
	}
	return s.openSession(ctx, req)
}

func (s *AuthService) openSession(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	sess, err := s.sessionManager.CreateSession(ctx, req.IPAddress, req.UserAgent)
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("admin logged in", zap.String("mode", string(auth.ModeSession)), zap.String("ip", req.IPAddress))
	return &auth.LoginResponse{
		Mode:      auth.ModeSession,
		ExpiresIn: int(s.sessionManager.TTL().Seconds()),
		ExpiresAt: sess.ExpiresAt,
		SessionID: sess.ID,
	}, nil
}

func (s *AuthService) issueToken() (*auth.LoginResponse, error) {
	tok, err := s.jwtManager.Generator.Generate(session.AdminSubject)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Info("admin logged in", zap.String("mode", string(auth.ModeToken)), zap.String("jti", tok.ID))
	return &auth.LoginResponse{
		Mode:      auth.ModeToken,
		Token:     tok.Value,
		TokenType: "Bearer",
		ExpiresIn: int(s.jwtManager.Generator.Ttl.Seconds()),
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// Authenticate resolves a credential (session id or token) to the admin.
func (s *AuthService) Authenticate(ctx context.Context, credential string) (*auth.Principal, error) {
	if credential == "" {
		return nil, xerrors.ErrUnauthorized
	}

	if s.mode == auth.ModeToken {
		claims, err := s.ValidateToken(ctx, credential)
		if err != nil {
			return nil, err
		}
		return &auth.Principal{
			Subject:      claims.Subject,
			Mode:         auth.ModeToken,
			CredentialID: claims.ID,
			ExpiresAt:    claims.ExpiresAt.Time,
		}, nil
	}

	sess, err := s.sessionManager.GetSession(ctx, credential)
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionExpired) {
			return nil, fmt.Errorf("%w: %w", xerrors.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &auth.Principal{
		Subject:      sess.Subject,
		Mode:         auth.ModeSession,
		CredentialID: sess.ID,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// ValidateToken verifies signature and claims and rejects revoked tokens.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %w", xerrors.ErrUnauthorized, err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("%w: token has been revoked", xerrors.ErrUnauthorized)
	}

	return claims, nil
}

// Logout ends the session, or revokes the token until it would expire.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	switch principal.Mode {
	case auth.ModeToken:
		if err := s.sessionManager.BlacklistToken(ctx, principal.CredentialID, principal.ExpiresAt); err != nil {
			return fmt.Errorf("failed to blacklist token: %w", err)
		}
	default:
		if err := s.sessionManager.InvalidateSession(ctx, principal.CredentialID); err != nil {
			return err
		}
	}

	s.logger.Info("admin logged out", zap.String("mode", string(principal.Mode)))
	return nil
}

// SessionTTL is how long a session cookie should live.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionManager.TTL()
}
