package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/event"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

// AuthServiceConfig holds the credential adapters. A nil adapter disables
// that login method.
type AuthServiceConfig struct {
	Password  adapter.Authenticator
	Directory adapter.Authenticator
	APIKey    adapter.Authenticator
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Authenticate verifies a login and issues a refresh token
	Authenticate(ctx context.Context, identifier, secret string, method domain.CredentialType) (*dto.AuthenticatedUser, error)
	// RefreshToken rotates a refresh token
	RefreshToken(ctx context.Context, refreshToken, deviceInfo string) (*dto.RefreshResult, error)
	// ValidateToken reports whether an access token has not been revoked
	ValidateToken(ctx context.Context, token string) bool
	// Logout revokes an access token
	Logout(ctx context.Context, userID, accessToken string) (*dto.LogoutResult, error)
}

// authService implements AuthService
type authService struct {
	credRepo repository.CredentialRepository
	tokens   TokenService
	events   event.Publisher
	config   *AuthServiceConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	credRepo repository.CredentialRepository,
	tokens TokenService,
	events event.Publisher,
	config *AuthServiceConfig,
) AuthService {
	if events == nil {
		events = event.NoopPublisher{}
	}
	return &authService{
		credRepo: credRepo,
		tokens:   tokens,
		events:   events,
		config:   config,
		log:      logger.Get().With(zap.String("component", "auth_service")),
		now:      time.Now,
	}
}

func (s *authService) adapterFor(method domain.CredentialType) (adapter.Authenticator, error) {
	var a adapter.Authenticator
	switch method {
	case domain.CredentialPassword:
		a = s.config.Password
	case domain.CredentialLDAP:
		a = s.config.Directory
	case domain.CredentialAPIKey:
		a = s.config.APIKey
	default:
		return nil, fmt.Errorf("%w: %w: %q", domain.ErrInvalidCredentials, domain.ErrUnknownCredentialType, method)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s authentication", domain.ErrNotImplemented, method)
	}
	return a, nil
}

// Authenticate verifies a login and issues a refresh token
func (s *authService) Authenticate(ctx context.Context, identifier, secret string, method domain.CredentialType) (*dto.AuthenticatedUser, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.authenticate")
	defer span.End()

	span.SetAttributes(
		attribute.String("identifier", identifier),
		attribute.String("method", string(method)),
	)

	auth, err := s.adapterFor(method)
	if err != nil {
		telemetry.Fail(span, err)
		s.log.ErrorContext(ctx, "No adapter for credential type", zap.String("method", string(method)), zap.Error(err))
		return nil, err
	}

	result, err := auth.Authenticate(ctx, identifier, secret)
	if err == nil && (result == nil || result.User == nil || !result.User.IsActive) {
		err = domain.ErrAccountDisabled
	}
	if err != nil {
		return nil, s.rejected(ctx, span, identifier, method, err)
	}
	user := result.User

	// Best effort; a failed timestamp never fails the login
	if result.Credential != nil && result.Credential.ID != "" {
		if err := s.credRepo.UpdateLastLogin(ctx, result.Credential.ID, s.now()); err != nil {
			s.log.WarnContext(ctx, "Failed to record last login",
				zap.String("credential_id", result.Credential.ID), zap.Error(err))
		}
	}

	refresh, err := s.tokens.CreateRefreshToken(ctx, user.ID, "")
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	evt := event.New(event.LoginSucceeded)
	evt.UserID = user.ID
	evt.Identifier = identifier
	evt.Method = string(method)
	s.events.Publish(ctx, evt)

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")

	return dto.NewAuthenticatedUser(user, refresh), nil
}

// rejected logs the specific reason and returns the error the caller may see:
// directory outages pass through, everything else is invalid credentials
func (s *authService) rejected(ctx context.Context, span trace.Span, identifier string, method domain.CredentialType, cause error) error {
	s.log.WarnContext(ctx, "Authentication rejected",
		zap.String("identifier", identifier),
		zap.String("method", string(method)),
		zap.Error(cause),
	)

	evt := event.New(event.LoginFailed)
	evt.Identifier = identifier
	evt.Method = string(method)
	evt.Reason = failureReason(cause)
	s.events.Publish(ctx, evt)

	span.SetStatus(codes.Error, evt.Reason)
	if errors.Is(cause, domain.ErrDirectoryUnavailable) {
		return domain.ErrDirectoryUnavailable
	}
	return domain.ErrInvalidCredentials
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		return "directory_unavailable"
	case errors.Is(err, domain.ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, domain.ErrDirectoryUserNotAuthorized):
		return "directory_user_not_authorized"
	default:
		return "invalid_credentials"
	}
}

// RefreshToken rotates a refresh token. Every rejection reaches the caller
// as ErrSessionInvalid.
func (s *authService) RefreshToken(ctx context.Context, refreshToken, deviceInfo string) (*dto.RefreshResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh_token")
	defer span.End()

	result, err := s.tokens.RotateRefreshToken(ctx, refreshToken, deviceInfo)
	if err != nil {
		if isTokenRejection(err) {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: %w", domain.ErrSessionInvalid, err)
		}
		telemetry.Fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", result.User.ID))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidToken) ||
		errors.Is(err, domain.ErrRevokedToken) ||
		errors.Is(err, domain.ErrExpiredToken)
}

// ValidateToken reports whether an access token has not been revoked
func (s *authService) ValidateToken(ctx context.Context, token string) bool {
	return s.tokens.ValidateAccessToken(ctx, token)
}

// Logout revokes an access token
func (s *authService) Logout(ctx context.Context, userID, accessToken string) (*dto.LogoutResult, error) {
	return s.tokens.Logout(ctx, userID, accessToken)
}
