package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/event"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

const (
	// refreshTokenBytes is 256 bits of entropy, hex encoded to 64 characters
	refreshTokenBytes = 32

	logoutMessage = "Logged out successfully"
)

// TokenServiceConfig holds configuration for TokenService
type TokenServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// RevokeRefreshOnLogout ends every session of the user on logout
	RevokeRefreshOnLogout bool
}

// TokenService defines refresh token rotation and access token revocation
type TokenService interface {
	// CreateRefreshToken issues and stores a new refresh token
	CreateRefreshToken(ctx context.Context, userID, deviceInfo string) (string, error)
	// RotateRefreshToken exchanges a refresh token for a new one exactly once
	RotateRefreshToken(ctx context.Context, token, deviceInfo string) (*dto.RefreshResult, error)
	// ValidateAccessToken reports whether the token is absent from the blacklist
	ValidateAccessToken(ctx context.Context, token string) bool
	// Logout blacklists the access token for its remaining lifetime
	Logout(ctx context.Context, userID, accessToken string) (*dto.LogoutResult, error)
}

// ClaimsDecoder reads access token claims without checking the signature
type ClaimsDecoder func(token string) (*accesstoken.Claims, error)

type tokenService struct {
	refreshRepo repository.RefreshTokenRepository
	userRepo    repository.UserRepository
	blacklist   repository.BlacklistRepository
	events      event.Publisher
	decode      ClaimsDecoder
	config      *TokenServiceConfig
	log         *logger.Logger

	now    func() time.Time
	random io.Reader
}

// NewTokenService creates a new TokenService
func NewTokenService(
	refreshRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	blacklist repository.BlacklistRepository,
	events event.Publisher,
	config *TokenServiceConfig,
) TokenService {
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = accesstoken.DefaultTTL
	}
	if config.RefreshTokenTTL <= 0 {
		config.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if events == nil {
		events = event.NoopPublisher{}
	}
	return &tokenService{
		refreshRepo: refreshRepo,
		userRepo:    userRepo,
		blacklist:   blacklist,
		events:      events,
		decode:      accesstoken.Decode,
		config:      config,
		log:         logger.Get().With(zap.String("component", "token_service")),
		now:         time.Now,
		random:      rand.Reader,
	}
}

func (s *tokenService) generateToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateRefreshToken issues and stores a new refresh token
func (s *tokenService) CreateRefreshToken(ctx context.Context, userID, deviceInfo string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.token.create_refresh")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	value, err := s.generateToken()
	if err != nil {
		telemetry.Fail(span, err)
		return "", err
	}

	token := &domain.RefreshToken{
		UserID:     userID,
		Token:      value,
		ExpiresAt:  s.now().Add(s.config.RefreshTokenTTL),
		DeviceInfo: deviceInfo,
	}
	if err := s.refreshRepo.Create(ctx, token); err != nil {
		telemetry.Fail(span, err)
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return value, nil
}

// RotateRefreshToken revokes the presented token and issues its successor.
// Presenting an already revoked token revokes every token of the user.
func (s *tokenService) RotateRefreshToken(ctx context.Context, token, deviceInfo string) (*dto.RefreshResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.token.rotate")
	defer span.End()

	if token == "" {
		telemetry.Fail(span, domain.ErrInvalidToken)
		return nil, domain.ErrInvalidToken
	}

	stored, err := s.refreshRepo.GetByToken(ctx, token)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if stored == nil {
		telemetry.Fail(span, domain.ErrInvalidToken)
		return nil, domain.ErrInvalidToken
	}
	span.SetAttributes(attribute.String("user_id", stored.UserID))

	now := s.now()
	if stored.IsRevoked {
		return nil, s.reuseDetected(ctx, span, stored.UserID)
	}
	if stored.IsExpired(now) {
		telemetry.Fail(span, domain.ErrExpiredToken)
		return nil, domain.ErrExpiredToken
	}

	user, err := s.userRepo.GetWithRBAC(ctx, stored.UserID)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || !user.IsActive {
		// the presented token is consumed even though no successor is issued
		if _, err := s.refreshRepo.Revoke(ctx, token, now); err != nil {
			telemetry.Fail(span, err)
			return nil, fmt.Errorf("revoke refresh token: %w", err)
		}
		s.log.WarnContext(ctx, "Refresh rejected for missing or disabled user", zap.String("user_id", stored.UserID))
		telemetry.Fail(span, domain.ErrInvalidToken)
		return nil, domain.ErrInvalidToken
	}

	value, err := s.generateToken()
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if deviceInfo == "" {
		deviceInfo = stored.DeviceInfo
	}
	next := &domain.RefreshToken{
		Token:      value,
		ExpiresAt:  now.Add(s.config.RefreshTokenTTL),
		DeviceInfo: deviceInfo,
	}

	parent, err := s.refreshRepo.Rotate(ctx, token, next, now)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if parent == nil {
		// another request consumed the token between our read and the update
		return nil, s.reuseDetected(ctx, span, stored.UserID)
	}

	return &dto.RefreshResult{RefreshToken: next.Token, User: user}, nil
}

// reuseDetected revokes all tokens of userID before reporting ErrRevokedToken
func (s *tokenService) reuseDetected(ctx context.Context, span trace.Span, userID string) error {
	revoked, err := s.refreshRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to revoke sessions after refresh token reuse",
			zap.String("user_id", userID), zap.Error(err))
		err = errors.Join(domain.ErrRevokedToken, err)
		telemetry.Fail(span, err)
		return err
	}

	s.log.WarnContext(ctx, "Refresh token reuse detected, all sessions revoked",
		zap.String("user_id", userID), zap.Int64("revoked", revoked))

	evt := event.New(event.RefreshReuseDetected)
	evt.UserID = userID
	evt.RevokedTokens = revoked
	s.events.Publish(ctx, evt)

	telemetry.Fail(span, domain.ErrRevokedToken)
	return domain.ErrRevokedToken
}

// ValidateAccessToken fails closed when the blacklist cannot be read
func (s *tokenService) ValidateAccessToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ctx, span := telemetry.StartSpan(ctx, "service.token.validate")
	defer span.End()

	revoked, err := s.blacklist.Contains(ctx, token)
	if err != nil {
		s.log.ErrorContext(ctx, "Blacklist lookup failed", zap.Error(err))
		telemetry.Fail(span, err)
		return false
	}
	span.SetAttributes(attribute.Bool("revoked", revoked))
	return !revoked
}

// Logout blacklists accessToken until its own expiry. The token was verified
// at the gateway, so only its expiry claim is decoded here; the TTL is capped
// at the access token lifetime to bound what a forged claim could request.
func (s *tokenService) Logout(ctx context.Context, userID, accessToken string) (*dto.LogoutResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.token.logout")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	if accessToken != "" {
		if ttl, ok := s.remainingLifetime(ctx, accessToken); ok {
			if err := s.blacklist.Add(ctx, accessToken, ttl); err != nil {
				s.log.WarnContext(ctx, "Failed to blacklist access token on logout",
					zap.String("user_id", userID), zap.Error(err))
			}
		}
	}

	if s.config.RevokeRefreshOnLogout && userID != "" {
		if _, err := s.refreshRepo.RevokeAllForUser(ctx, userID); err != nil {
			telemetry.Fail(span, err)
			return nil, fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}

	evt := event.New(event.LogoutCompleted)
	evt.UserID = userID
	s.events.Publish(ctx, evt)

	return &dto.LogoutResult{Success: true, Message: logoutMessage}, nil
}

// remainingLifetime returns whole seconds until the token's exp claim
func (s *tokenService) remainingLifetime(ctx context.Context, token string) (time.Duration, bool) {
	claims, err := s.decode(token)
	if err != nil {
		s.log.WarnContext(ctx, "Could not decode access token on logout", zap.Error(err))
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now()).Truncate(time.Second)
	if ttl > s.config.AccessTokenTTL {
		ttl = s.config.AccessTokenTTL
	}
	return ttl, ttl > 0
}
