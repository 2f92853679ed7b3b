package handler

import (
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
)

// LoginRequest is the body of POST /api/v1/auth/login
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Type       string `json:"type"`
}

// RefreshRequest is the body of POST /api/v1/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserView `json:"user"`
}

// UserView is the caller's identity as the gateway exposes it
type UserView struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (u UserView) identity() accesstoken.Identity {
	return accesstoken.Identity{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}
}

func userFromAuth(r *authrpc.AuthenticateResponse) UserView {
	return UserView{
		ID:          r.ID,
		Username:    r.Username,
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Roles:       r.Roles,
		Permissions: r.Permissions,
	}
}

func userFromProfile(p *authrpc.UserProfile) UserView {
	return UserView{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Roles:       p.RoleNames(),
		Permissions: p.Permissions,
	}
}

func userFromClaims(c *accesstoken.Claims) UserView {
	return UserView{
		ID:          c.ID,
		Username:    c.Username,
		Email:       c.Email,
		Roles:       c.Roles,
		Permissions: c.Permissions,
	}
}

// AssignRolesRequest is the body of PUT /admin/users/:id/roles
type AssignRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// SetPermissionsRequest is the body of PUT /admin/roles/:id/permissions
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// SetActiveRequest is the body of the enable and disable routes
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ChangePasswordRequest is the body of PUT /admin/users/:id/password
type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
