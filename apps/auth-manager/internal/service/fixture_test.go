package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
	"github.com/prohmpiriya/hr-identity/pkg/redis"
)

const (
	adminUsername = "admin"
	adminPassword = "12345!"
	testSecret    = "test-secret-key"
)

type fixture struct {
	store  *memStore
	users  *mockUserRepository
	creds  *mockCredentialRepository
	roles  *mockRoleRepository
	perms  *mockPermissionRepository
	tokens *mockRefreshTokenRepository
	events *recordingPublisher

	mr        *miniredis.Miniredis
	blacklist *repository.RedisBlacklistRepository
	signer    *accesstoken.Signer

	tokenConfig *TokenServiceConfig
	tokenSvc    *tokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store:       store,
		users:       &mockUserRepository{s: store},
		creds:       &mockCredentialRepository{s: store},
		roles:       &mockRoleRepository{s: store},
		perms:       &mockPermissionRepository{s: store},
		tokens:      &mockRefreshTokenRepository{s: store},
		events:      &recordingPublisher{},
		tokenConfig: &TokenServiceConfig{},
	}

	f.mr = miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: f.mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	f.blacklist = repository.NewRedisBlacklistRepository(client)

	signer, err := accesstoken.NewSigner(accesstoken.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	f.signer = signer

	f.tokenSvc = NewTokenService(f.tokens, f.users, f.blacklist, f.events, f.tokenConfig).(*tokenService)
	return f
}

func (f *fixture) authService(cfg *AuthServiceConfig) AuthService {
	if cfg == nil {
		cfg = &AuthServiceConfig{Password: adapter.NewPasswordAdapter(f.creds, f.users, bcrypt.MinCost)}
	}
	return NewAuthService(f.creds, f.tokenSvc, f.events, cfg)
}

func (f *fixture) rbacService() RBACService {
	return NewRBACService(f.users, f.roles, f.perms)
}

func (f *fixture) userService() UserService {
	return NewUserService(f.users, f.creds, f.roles, &UserServiceConfig{BcryptCost: bcrypt.MinCost})
}

// seedAdmin creates the admin and user roles and an admin account whose
// password is adminPassword
func (f *fixture) seedAdmin(t *testing.T) *domain.User {
	t.Helper()
	ctx := context.Background()

	for _, name := range []string{"employees.read", "employees.write", "users.manage", "roles.manage"} {
		perm, err := domain.NewPermission(name, "", "", "")
		if err != nil {
			t.Fatalf("NewPermission(%s): %v", name, err)
		}
		if err := f.perms.Upsert(ctx, perm); err != nil {
			t.Fatalf("seed permission: %v", err)
		}
	}

	admin := &domain.Role{Name: "admin", Description: "Administrator"}
	if err := f.roles.Create(ctx, admin, []string{"employees.read", "employees.write", "users.manage", "roles.manage"}); err != nil {
		t.Fatalf("seed admin role: %v", err)
	}
	if err := f.roles.Create(ctx, &domain.Role{Name: "user"}, []string{"employees.read"}); err != nil {
		t.Fatalf("seed user role: %v", err)
	}

	return f.addUser(t, adminUsername, adminPassword, admin.ID)
}

// addUser creates an active user with a password credential and the given roles
func (f *fixture) addUser(t *testing.T, username, password string, roleIDs ...string) *domain.User {
	t.Helper()
	ctx := context.Background()

	user, err := domain.NewUser(username, username+"@example.com", "Test", "User", "")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := f.users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cred, err := domain.NewPasswordCredential(user.ID, username, string(hash))
	if err != nil {
		t.Fatalf("NewPasswordCredential: %v", err)
	}
	if err := f.creds.Create(ctx, cred); err != nil {
		t.Fatalf("create credential: %v", err)
	}
	if len(roleIDs) > 0 {
		if err := f.users.ReplaceRoles(ctx, user.ID, roleIDs); err != nil {
			t.Fatalf("assign roles: %v", err)
		}
	}
	return user
}

// issueRefresh stores a new refresh token for userID
func (f *fixture) issueRefresh(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.tokenSvc.CreateRefreshToken(context.Background(), userID, "test-device")
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	return token
}

func (f *fixture) setClock(now time.Time) {
	f.tokenSvc.now = func() time.Time { return now }
}
