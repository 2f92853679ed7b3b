// Package adapter verifies a login secret against one credential source and
// resolves the local user it belongs to.
package adapter

import (
	"context"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
)

// AuthResult is a verified login: the user aggregate and the credential that matched
type AuthResult struct {
	User       *domain.User
	Credential *domain.Credential
	// DisplayName is the name the directory holds for the account, if any
	DisplayName string
}

// Authenticator verifies identifier and secret for one credential type.
// Failures wrap domain.ErrInvalidCredentials, domain.ErrAccountDisabled or
// domain.ErrDirectoryUnavailable with the specific reason.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*AuthResult, error)
}
