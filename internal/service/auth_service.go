package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// TokenRevoker tracks logged-out token IDs until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// LoginResult is what a successful login returns to the client.
type LoginResult struct {
	Token     string      `json:"token"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenService
	verifier auth.Verifier
	revoker  TokenRevoker
	now      func() time.Time
}

// NewAuthService wires login and logout. revoker may be nil, in which case
// logout cannot invalidate a token before it expires.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	verifier auth.Verifier,
	revoker TokenRevoker,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
		revoker:  revoker,
		now:      time.Now,
	}
}

var errInvalidCredentials = models.NewUnauthorizedError("Invalid username or password")

// Login verifies the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		observability.AuthAttempts.WithLabelValues("rejected").Inc()
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	hash := ""
	if user != nil {
		hash = user.Password
	}
	ok, bypass := s.verifier.Verify(username, password, hash)
	if !ok {
		observability.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		middleware.Logger.InfoContext(ctx, "login failed", slog.String("username", username))
		return nil, errInvalidCredentials
	}

	if user == nil {
		// The legacy credential still needs a stored account to speak for.
		observability.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		middleware.Logger.InfoContext(ctx, "login failed", slog.String("username", username))
		return nil, errInvalidCredentials
	}
	if bypass {
		observability.LegacyAdminBypass.Inc()
		middleware.SecurityEvent(ctx, "login accepted through legacy admin credential",
			slog.String("username", username), slog.String("role", string(user.Role)))
	}
	role := user.Role

	token, expiresAt, err := s.tokens.Issue(username, role)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("error").Inc()
		return nil, models.NewInternalError(err)
	}

	observability.AuthAttempts.WithLabelValues("success").Inc()
	return &LoginResult{
		Token:     token,
		Username:  username,
		Role:      role,
		ExpiresAt: expiresAt,
	}, nil
}

// Authenticate validates a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	id, err := s.tokens.Validate(token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, id.TokenID)
		if err != nil {
			// Fail closed: a token we cannot check may have been logged out.
			middleware.Logger.ErrorContext(ctx, "revocation check failed", slog.String("error", err.Error()))
			return nil, models.NewUnauthorizedError("Unable to verify token")
		}
		if revoked {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}
	return id, nil
}

// Logout revokes the token carried by id for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, id *auth.Identity) error {
	if s.revoker == nil {
		return nil
	}
	err := s.revoker.Revoke(ctx, id.TokenID, id.ExpiresAt.Sub(s.now()))
	if errors.Is(err, cache.ErrRevocationUnavailable) {
		middleware.Logger.WarnContext(ctx, "logout without revocation store, token stays valid until expiry")
		return nil
	}
	if err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
