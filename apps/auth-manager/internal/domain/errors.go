package domain

import "errors"

// Authentication errors. Only ErrInvalidCredentials and ErrDirectoryUnavailable
// ever leave the auth service; the rest are logged and collapsed.
var (
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrAccountDisabled            = errors.New("account is disabled")
	ErrDirectoryUnavailable       = errors.New("authentication service temporarily unavailable")
	ErrDirectoryUserNotAuthorized = errors.New("directory user not authorized in system")
	ErrNotImplemented             = errors.New("authentication method not implemented")
	ErrUnknownCredentialType      = errors.New("unknown credential type")
)

// Refresh token lifecycle errors
var (
	ErrInvalidToken = errors.New("invalid refresh token")
	ErrRevokedToken = errors.New("refresh token has been revoked")
	ErrExpiredToken = errors.New("refresh token has expired")
	// ErrSessionInvalid is what callers see for any of the three above
	ErrSessionInvalid = errors.New("session expired or invalid")
)

// Administration errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already in use")
	ErrRoleExists         = errors.New("role already exists")
	ErrPermissionExists   = errors.New("permission already exists")
	ErrCredentialExists   = errors.New("credential already exists for this identifier")
	ErrInvalidInput       = errors.New("invalid input")
)
