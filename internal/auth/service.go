package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrAuthDisabled is returned by Login when no signing key is configured.
var ErrAuthDisabled = errors.New("authentication is not configured")

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	// JWTService signs and validates tokens. Nil disables login.
	JWTService *JWTService
}

// Service provides guest session operations.
type Service struct {
	jwtService *JWTService
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{jwtService: cfg.JWTService}
}

// Enabled reports whether tokens can be issued.
func (s *Service) Enabled() bool {
	return s != nil && s.jwtService != nil
}

// Login issues a guest session. Credentials are not checked.
func (s *Service) Login(ctx context.Context) (*Session, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := "guest_" + uuid.NewString()
	token, expiresAt, err := s.jwtService.GenerateGuestToken(subject)
	if err != nil {
		return nil, fmt.Errorf("generating guest token: %w", err)
	}

	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(s.jwtService.now()).Seconds()),
		Subject:     subject,
	}, nil
}

// Check validates a bearer token. Any failure, including a disabled
// service, yields an unauthenticated status; the error says why.
func (s *Service) Check(token string) (Status, error) {
	if !s.Enabled() {
		return Status{}, ErrAuthDisabled
	}

	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return Status{}, err
	}

	status := Status{Authenticated: true, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		status.ExpiresAt = claims.ExpiresAt.Time
	}
	return status, nil
}

// TokenTTL returns the lifetime of issued tokens, or 0 when disabled.
func (s *Service) TokenTTL() time.Duration {
	if !s.Enabled() {
		return 0
	}
	return s.jwtService.expiry
}
