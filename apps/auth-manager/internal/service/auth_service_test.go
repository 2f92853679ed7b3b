package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/adapter"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/event"
	"github.com/prohmpiriya/hr-identity/pkg/accesstoken"
)

// stubAuthenticator returns a fixed outcome
type stubAuthenticator struct {
	result *adapter.AuthResult
	err    error
	calls  int
}

func (a *stubAuthenticator) Authenticate(ctx context.Context, identifier, secret string) (*adapter.AuthResult, error) {
	a.calls++
	return a.result, a.err
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("seeded admin logs in", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t)
		svc := f.authService(nil)

		got, err := svc.Authenticate(ctx, adminUsername, adminPassword, domain.CredentialPassword)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if got.ID != admin.ID || got.Username != adminUsername {
			t.Errorf("user = %+v", got)
		}
		if len(got.Roles) != 1 || got.Roles[0] != "admin" {
			t.Errorf("Roles = %v", got.Roles)
		}
		if len(got.Permissions) != 4 {
			t.Errorf("Permissions = %v", got.Permissions)
		}
		if len(got.RefreshToken) != 64 {
			t.Errorf("RefreshToken = %q", got.RefreshToken)
		}
		if got.FullName != "Test User" {
			t.Errorf("FullName = %q", got.FullName)
		}

		creds, _ := f.creds.FindByUserID(ctx, admin.ID)
		if len(creds) != 1 || creds[0].LastLoginAt == nil {
			t.Error("last login should be recorded")
		}
		if types := f.events.types(); len(types) != 1 || types[0] != event.LoginSucceeded {
			t.Errorf("events = %v", types)
		}
	})

	t.Run("rejections collapse to invalid credentials", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t)
		f.addUser(t, "disabled", "secret-1")
		disabled, _ := f.users.GetByUsername(ctx, "disabled")
		_ = f.users.SetActive(ctx, disabled.ID, false)
		svc := f.authService(nil)

		tests := []struct {
			name       string
			identifier string
			password   string
			reason     string
		}{
			{"wrong password", adminUsername, "wrong", "invalid_credentials"},
			{"unknown user", "nobody", adminPassword, "invalid_credentials"},
			{"empty password", adminUsername, "", "invalid_credentials"},
			{"disabled account", "disabled", "secret-1", "account_disabled"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Authenticate(ctx, tt.identifier, tt.password, domain.CredentialPassword)
				if err != domain.ErrInvalidCredentials {
					t.Errorf("err = %v, want exactly ErrInvalidCredentials", err)
				}
				last := f.events.events[len(f.events.events)-1]
				if last.Type != event.LoginFailed || last.Reason != tt.reason {
					t.Errorf("event = %+v, want reason %s", last, tt.reason)
				}
			})
		}

		if n := f.tokens.activeTokens(admin.ID); n != 0 {
			t.Errorf("failed logins must not issue tokens, active = %d", n)
		}
	})

	t.Run("directory outcomes", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t)
		user, _ := f.users.GetWithRBAC(ctx, admin.ID)

		tests := []struct {
			name    string
			stub    *stubAuthenticator
			wantErr error
		}{
			{"success", &stubAuthenticator{result: &adapter.AuthResult{User: user}}, nil},
			{"outage passes through", &stubAuthenticator{err: fmt.Errorf("%w: dial: refused", domain.ErrDirectoryUnavailable)}, domain.ErrDirectoryUnavailable},
			{"unmapped account", &stubAuthenticator{err: fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrDirectoryUserNotAuthorized)}, domain.ErrInvalidCredentials},
			{"inactive user slipping through", &stubAuthenticator{result: &adapter.AuthResult{User: &domain.User{ID: "x", IsActive: false}}}, domain.ErrInvalidCredentials},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := f.authService(&AuthServiceConfig{Directory: tt.stub})
				got, err := svc.Authenticate(ctx, "jdoe", "pw", domain.CredentialLDAP)
				if err != tt.wantErr {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if tt.wantErr == nil && got.ID != admin.ID {
					t.Errorf("user = %+v", got)
				}
				if tt.stub.calls != 1 {
					t.Errorf("directory adapter called %d times", tt.stub.calls)
				}
			})
		}
	})

	t.Run("method selection", func(t *testing.T) {
		f := newFixture(t)
		password := &stubAuthenticator{err: domain.ErrInvalidCredentials}
		svc := f.authService(&AuthServiceConfig{Password: password})

		if _, err := svc.Authenticate(ctx, "a", "b", domain.CredentialAPIKey); !errors.Is(err, domain.ErrNotImplemented) {
			t.Errorf("api_key: err = %v, want ErrNotImplemented", err)
		}
		if _, err := svc.Authenticate(ctx, "a", "b", domain.CredentialLDAP); !errors.Is(err, domain.ErrNotImplemented) {
			t.Errorf("unconfigured directory: err = %v, want ErrNotImplemented", err)
		}
		_, err := svc.Authenticate(ctx, "a", "b", domain.CredentialType("kerberos"))
		if !errors.Is(err, domain.ErrUnknownCredentialType) || !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("unknown method: err = %v, want invalid credentials", err)
		}
		if password.calls != 0 {
			t.Error("password adapter must not serve other methods")
		}
	})

	t.Run("last login failure is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.seedAdmin(t)
		f.store.lastLoginErr = errors.New("deadlock detected")

		got, err := f.authService(nil).Authenticate(ctx, adminUsername, adminPassword, domain.CredentialPassword)
		if err != nil || got.RefreshToken == "" {
			t.Errorf("Authenticate = %+v, %v", got, err)
		}
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedAdmin(t)
	svc := f.authService(nil)

	login, err := svc.Authenticate(ctx, adminUsername, adminPassword, domain.CredentialPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	rotated, err := svc.RefreshToken(ctx, login.RefreshToken, "")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if rotated.User.Username != adminUsername || rotated.RefreshToken == login.RefreshToken {
		t.Errorf("rotated = %+v", rotated)
	}

	for _, token := range []string{login.RefreshToken, "garbage", ""} {
		_, err := svc.RefreshToken(ctx, token, "")
		if !errors.Is(err, domain.ErrSessionInvalid) {
			t.Errorf("RefreshToken(%q) err = %v, want ErrSessionInvalid", token, err)
		}
	}

	t.Run("storage errors are not session errors", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t)
		token := f.issueRefresh(t, admin.ID)
		f.store.rbacErr = errors.New("connection reset")

		_, err := f.authService(nil).RefreshToken(ctx, token, "")
		if err == nil || errors.Is(err, domain.ErrSessionInvalid) {
			t.Errorf("err = %v, want an internal error", err)
		}
	})
}

func TestAuthService_ValidateAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t)
	svc := f.authService(nil)

	token, _, err := f.signer.Sign(accesstoken.Identity{UserID: admin.ID, Username: admin.Username})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !svc.ValidateToken(ctx, token) {
		t.Fatal("fresh token should validate")
	}

	result, err := svc.Logout(ctx, admin.ID, token)
	if err != nil || !result.Success {
		t.Fatalf("Logout = %+v, %v", result, err)
	}
	if svc.ValidateToken(ctx, token) {
		t.Error("token should be revoked after logout")
	}
}
