package adapter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
)

// PasswordAdapter checks bcrypt hashes stored on password credentials
type PasswordAdapter struct {
	credentials repository.CredentialRepository
	users       repository.UserRepository
	cost        int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordAdapter creates a PasswordAdapter. cost is the bcrypt cost new
// passwords are hashed with; the decoy hash for unknown identifiers uses it too.
func NewPasswordAdapter(credentials repository.CredentialRepository, users repository.UserRepository, cost int) *PasswordAdapter {
	return &PasswordAdapter{credentials: credentials, users: users, cost: normalizeCost(cost)}
}

// Authenticate verifies a local password
func (a *PasswordAdapter) Authenticate(ctx context.Context, identifier, password string) (*AuthResult, error) {
	cred, err := a.credentials.FindActiveByIdentifier(ctx, domain.CredentialPassword, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: credential lookup: %v", domain.ErrInvalidCredentials, err)
	}
	if cred == nil || !cred.Usable() {
		// keep timing close to a real comparison
		_ = bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
		return nil, fmt.Errorf("%w: no usable password credential", domain.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*cred.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: password mismatch", domain.ErrInvalidCredentials)
	}

	return resolveUser(ctx, a.users, cred)
}

func (a *PasswordAdapter) dummy() []byte {
	a.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), a.cost)
	})
	return a.dummyHash
}

// resolveUser loads the aggregate a verified credential points at
func resolveUser(ctx context.Context, users repository.UserRepository, cred *domain.Credential) (*AuthResult, error) {
	user, err := users.GetWithRBAC(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user lookup: %v", domain.ErrInvalidCredentials, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: credential %s has no user", domain.ErrInvalidCredentials, cred.ID)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}
	return &AuthResult{User: user, Credential: cred}, nil
}

// HashPassword hashes a new password with bcrypt at cost, falling back to
// bcrypt.DefaultCost when cost is out of range
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}
