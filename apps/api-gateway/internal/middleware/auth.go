package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/response"
)

const (
	// ClaimsKey holds the verified *accesstoken.Claims
	ClaimsKey = "claims"
	// AccessTokenKey holds the raw bearer token
	AccessTokenKey = "access_token"
	// UserIDKey holds the authenticated user's id
	UserIDKey = "user_id"

	bearerPrefix = "Bearer "
)

// RevocationChecker asks the auth manager whether a token is still usable
type RevocationChecker interface {
	ValidateToken(ctx context.Context, in *authrpc.ValidateTokenRequest) (*authrpc.ValidateTokenResponse, error)
}

// JWTAuth verifies the bearer token locally, then checks the blacklist
// through the auth manager. Any failure rejects the request.
func JWTAuth(signer *accesstoken.Signer, checker RevocationChecker) gin.HandlerFunc {
	log := logger.Get().With(zap.String("component", "jwt_auth"))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid authorization header format")
			return
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])

		claims, err := signer.Verify(token)
		if err != nil {
			if errors.Is(err, accesstoken.ErrExpiredToken) {
				response.Abort(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired")
				return
			}
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		resp, err := checker.ValidateToken(c.Request.Context(), &authrpc.ValidateTokenRequest{Token: token})
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Token revocation check failed", zap.Error(err))
			response.Abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Authentication service unavailable")
			return
		}
		if !resp.Valid {
			response.Abort(c, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(AccessTokenKey, token)
		c.Set(UserIDKey, claims.ID)
		c.Next()
	}
}

// GetClaims returns the claims stored by JWTAuth
func GetClaims(c *gin.Context) (*accesstoken.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*accesstoken.Claims)
	return claims, ok && claims != nil
}

// GetAccessToken returns the bearer token stored by JWTAuth
func GetAccessToken(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}

// RequirePermission lets the request through only if the token grants every
// listed permission
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
			return
		}
		for _, p := range perms {
			if !claims.HasPermission(p) {
				response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Missing permission "+p)
				return
			}
		}
		c.Next()
	}
}

// RequireRole lets the request through if the token carries any listed role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
			return
		}
		for _, r := range roles {
			if claims.HasRole(r) {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role")
	}
}
