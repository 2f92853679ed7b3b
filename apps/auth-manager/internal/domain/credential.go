package domain

import (
	"fmt"
	"strings"
	"time"
)

// CredentialType selects how a credential is verified
type CredentialType string

const (
	CredentialPassword CredentialType = "password"
	CredentialLDAP     CredentialType = "ldap"
	CredentialAPIKey   CredentialType = "api_key"
)

// ParseCredentialType maps a wire value to a CredentialType. Empty means password.
func ParseCredentialType(s string) (CredentialType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "password", "db":
		return CredentialPassword, nil
	case "ldap", "directory":
		return CredentialLDAP, nil
	case "api_key":
		return CredentialAPIKey, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCredentialType, s)
}

// Credential is one authentication method bound to a user
type Credential struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Type       CredentialType `json:"type"`
	Identifier string         `json:"identifier"`
	// PasswordHash is nil for directory credentials
	PasswordHash *string    `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Validate enforces the hash rule per credential type
func (c *Credential) Validate() error {
	if c.UserID == "" || strings.TrimSpace(c.Identifier) == "" {
		return fmt.Errorf("%w: credential needs a user and an identifier", ErrInvalidInput)
	}
	switch c.Type {
	case CredentialPassword:
		if c.PasswordHash == nil || *c.PasswordHash == "" {
			return fmt.Errorf("%w: password credential requires a hash", ErrInvalidInput)
		}
	case CredentialLDAP:
		if c.PasswordHash != nil {
			return fmt.Errorf("%w: directory credential must not store a hash", ErrInvalidInput)
		}
	case CredentialAPIKey:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCredentialType, c.Type)
	}
	return nil
}

// Usable reports whether the credential can take part in a login
func (c *Credential) Usable() bool {
	if !c.IsActive {
		return false
	}
	if c.Type == CredentialPassword {
		return c.PasswordHash != nil && *c.PasswordHash != ""
	}
	return true
}

// NewPasswordCredential builds an active password credential
func NewPasswordCredential(userID, identifier, hash string) (*Credential, error) {
	c := &Credential{
		UserID:       userID,
		Type:         CredentialPassword,
		Identifier:   strings.TrimSpace(identifier),
		PasswordHash: &hash,
		IsActive:     true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDirectoryCredential maps a directory account to a local user
func NewDirectoryCredential(userID, account string) (*Credential, error) {
	c := &Credential{
		UserID:     userID,
		Type:       CredentialLDAP,
		Identifier: strings.TrimSpace(account),
		IsActive:   true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
