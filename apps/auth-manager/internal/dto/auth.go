package dto

import (
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
)

// AuthenticatedUser is what a successful login hands back to the gateway,
// which signs the access token itself
type AuthenticatedUser struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	FullName     string   `json:"full_name"`
	Phone        string   `json:"phone"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
	RefreshToken string   `json:"refresh_token"`
}

// NewAuthenticatedUser flattens the user aggregate
func NewAuthenticatedUser(u *domain.User, refreshToken string) *AuthenticatedUser {
	return &AuthenticatedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FullName:     u.FullName(),
		Phone:        u.Phone,
		Roles:        u.RoleNames(),
		Permissions:  u.PermissionNames(),
		RefreshToken: refreshToken,
	}
}

// RefreshResult is the outcome of a successful rotation
type RefreshResult struct {
	RefreshToken string
	User         *domain.User
}

// LogoutResult mirrors the Logout RPC reply
type LogoutResult struct {
	Success bool
	Message string
}
