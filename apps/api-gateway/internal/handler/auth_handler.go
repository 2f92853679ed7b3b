package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/prohmpiriya/hr-identity/apps/api-gateway/internal/middleware"
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/response"
)

const tokenType = "Bearer"

// OutcomeRecorder counts auth operation results
type OutcomeRecorder interface {
	AuthOutcome(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) AuthOutcome(string, string) {}

// AuthHandler handles the session endpoints. It signs access tokens; the
// auth manager owns credentials and refresh tokens.
type AuthHandler struct {
	auth    authrpc.AuthServiceClient
	signer  *accesstoken.Signer
	metrics OutcomeRecorder
	log     *logger.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth authrpc.AuthServiceClient, signer *accesstoken.Signer, metrics OutcomeRecorder) *AuthHandler {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &AuthHandler{
		auth:    auth,
		signer:  signer,
		metrics: metrics,
		log:     logger.Get().With(zap.String("component", "auth_handler")),
	}
}

// Login verifies credentials and issues a token pair
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "identifier and password are required")
		return
	}
	if req.Type == "" {
		req.Type = authrpc.TypePassword
	}

	resp, err := h.auth.Authenticate(c.Request.Context(), &authrpc.AuthenticateRequest{
		Identifier: req.Identifier,
		Password:   req.Password,
		Type:       req.Type,
	})
	if err != nil {
		h.metrics.AuthOutcome("login", outcomeOf(err))
		if status.Code(err) == codes.Unauthenticated {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", "")
			return
		}
		writeRPCError(c, h.log, err)
		return
	}

	h.issue(c, "login", resp.RefreshToken, userFromAuth(resp))
}

// Refresh rotates the refresh token and issues a new access token
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token is required")
		return
	}

	resp, err := h.auth.RefreshToken(c.Request.Context(), &authrpc.RefreshTokenRequest{
		RefreshToken: req.RefreshToken,
		DeviceInfo:   c.Request.UserAgent(),
	})
	if err != nil {
		h.metrics.AuthOutcome("refresh", outcomeOf(err))
		if status.Code(err) != codes.Unauthenticated {
			h.log.WarnContext(c.Request.Context(), "Refresh failed", zap.Error(err))
		}
		response.Error(c, http.StatusUnauthorized, "SESSION_INVALID", "Session expired or invalid", "")
		return
	}

	h.issue(c, "refresh", resp.RefreshToken, userFromProfile(&resp.User))
}

func (h *AuthHandler) issue(c *gin.Context, operation, refreshToken string, user UserView) {
	accessToken, _, err := h.signer.Sign(user.identity())
	if err != nil {
		h.metrics.AuthOutcome(operation, "error")
		h.log.ErrorContext(c.Request.Context(), "Failed to sign access token", zap.Error(err))
		response.InternalError(c)
		return
	}

	h.metrics.AuthOutcome(operation, "success")
	response.Success(c, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ExpiresIn:    int64(h.signer.TTL().Seconds()),
		User:         user,
	})
}

// Logout blacklists the presented access token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	resp, err := h.auth.Logout(c.Request.Context(), &authrpc.LogoutRequest{
		UserID:      claims.ID,
		AccessToken: middleware.GetAccessToken(c),
	})
	if err != nil {
		h.metrics.AuthOutcome("logout", outcomeOf(err))
		writeRPCError(c, h.log, err)
		return
	}

	h.metrics.AuthOutcome("logout", "success")
	response.Success(c, gin.H{"message": resp.Message})
}

// Me returns the identity carried by the access token
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}
	response.Success(c, userFromClaims(claims))
}

func outcomeOf(err error) string {
	switch status.Code(err) {
	case codes.Unauthenticated:
		return "rejected"
	case codes.Unavailable, codes.DeadlineExceeded:
		return "unavailable"
	case codes.InvalidArgument, codes.Unimplemented:
		return "bad_request"
	default:
		return "error"
	}
}
