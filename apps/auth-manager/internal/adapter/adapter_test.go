package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/retry"
)

// mockCredentialRepository only serves lookups
type mockCredentialRepository struct {
	repository.CredentialRepository
	creds map[string]*domain.Credential
	err   error
}

func newMockCredentialRepository() *mockCredentialRepository {
	return &mockCredentialRepository{creds: make(map[string]*domain.Credential)}
}

func (m *mockCredentialRepository) add(c *domain.Credential) {
	m.creds[string(c.Type)+"/"+c.Identifier] = c
}

func (m *mockCredentialRepository) FindActiveByIdentifier(_ context.Context, typ domain.CredentialType, identifier string) (*domain.Credential, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.creds[string(typ)+"/"+identifier]
	if !ok || !c.IsActive {
		return nil, nil
	}
	return c, nil
}

type mockUserRepository struct {
	repository.UserRepository
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) GetWithRBAC(_ context.Context, id string) (*domain.User, error) {
	return m.users[id], nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func setupPasswordAdapter(t *testing.T) (*PasswordAdapter, *mockCredentialRepository, *mockUserRepository) {
	creds := newMockCredentialRepository()
	users := newMockUserRepository()

	users.users["u-admin"] = &domain.User{ID: "u-admin", Username: "admin", IsActive: true,
		Roles: []domain.Role{{Name: "admin", Permissions: []domain.Permission{{Name: "users.manage"}}}}}
	users.users["u-off"] = &domain.User{ID: "u-off", Username: "off", IsActive: false}

	admin, _ := domain.NewPasswordCredential("u-admin", "admin", hashFor(t, "12345!"))
	off, _ := domain.NewPasswordCredential("u-off", "off", hashFor(t, "secret"))
	orphan, _ := domain.NewPasswordCredential("u-gone", "ghost", hashFor(t, "secret"))
	creds.add(admin)
	creds.add(off)
	creds.add(orphan)

	return NewPasswordAdapter(creds, users, bcrypt.MinCost), creds, users
}

func TestPasswordAdapter_Authenticate(t *testing.T) {
	a, creds, _ := setupPasswordAdapter(t)
	ctx := context.Background()

	t.Run("valid password", func(t *testing.T) {
		res, err := a.Authenticate(ctx, "admin", "12345!")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if res.User.ID != "u-admin" || res.Credential.Identifier != "admin" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, errWrong := a.Authenticate(ctx, "admin", "wrong")
		_, errUnknown := a.Authenticate(ctx, "nobody", "wrong")
		if !errors.Is(errWrong, domain.ErrInvalidCredentials) || !errors.Is(errUnknown, domain.ErrInvalidCredentials) {
			t.Errorf("errors = %v / %v, want ErrInvalidCredentials", errWrong, errUnknown)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := a.Authenticate(ctx, "off", "secret")
		if !errors.Is(err, domain.ErrAccountDisabled) {
			t.Errorf("error = %v, want ErrAccountDisabled", err)
		}
	})

	t.Run("orphaned credential", func(t *testing.T) {
		_, err := a.Authenticate(ctx, "ghost", "secret")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("inactive credential", func(t *testing.T) {
		creds.creds["password/admin"].IsActive = false
		defer func() { creds.creds["password/admin"].IsActive = true }()
		_, err := a.Authenticate(ctx, "admin", "12345!")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		creds.err = errors.New("connection refused")
		defer func() { creds.err = nil }()
		_, err := a.Authenticate(ctx, "admin", "12345!")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestPasswordAdapter_DecoyHashUsesConfiguredCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"configured", bcrypt.MinCost + 1, bcrypt.MinCost + 1},
		{"out of range", 99, bcrypt.DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewPasswordAdapter(newMockCredentialRepository(), newMockUserRepository(), tt.cost)
			if _, err := a.Authenticate(context.Background(), "nobody", "pw"); !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
			if cost, _ := bcrypt.Cost(a.dummy()); cost != tt.want {
				t.Errorf("decoy cost = %d, want %d", cost, tt.want)
			}
		})
	}
}

func TestDirectoryEntry_DisplayName(t *testing.T) {
	tests := []struct {
		attrs map[string]string
		want  string
	}{
		{map[string]string{"displayName": "Doe, John", "givenName": "John", "sn": "Doe"}, "Doe, John"},
		{map[string]string{"givenName": "John", "sn": "Doe", "cn": "jdoe"}, "John Doe"},
		{map[string]string{"cn": "jdoe"}, "jdoe"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := (DirectoryEntry{Attributes: tt.attrs}).DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%v) = %q, want %q", tt.attrs, got, tt.want)
		}
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("12345!", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h), []byte("12345!")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(h)); cost != 4 {
		t.Errorf("cost = %d, want 4", cost)
	}
}

// fakeDirectory scripts one directory server
type fakeDirectory struct {
	dialErrs  []error
	dials     int
	closed    int
	accounts  map[string]string // dn -> password
	entries   map[string][]DirectoryEntry
	searchErr error
	filters   []string
}

func (f *fakeDirectory) Dial(context.Context) (DirectoryConn, error) {
	f.dials++
	if len(f.dialErrs) > 0 {
		err := f.dialErrs[0]
		f.dialErrs = f.dialErrs[1:]
		return nil, err
	}
	return &fakeConn{dir: f}, nil
}

type fakeConn struct{ dir *fakeDirectory }

func (c *fakeConn) Bind(dn, password string) error {
	if pw, ok := c.dir.accounts[dn]; ok && pw == password {
		return nil
	}
	return ErrBindRejected
}

func (c *fakeConn) Search(_, filter string, _ []string) ([]DirectoryEntry, error) {
	c.dir.filters = append(c.dir.filters, filter)
	if c.dir.searchErr != nil {
		return nil, c.dir.searchErr
	}
	return c.dir.entries[filter], nil
}

func (c *fakeConn) Close() error {
	c.dir.closed++
	return nil
}

func setupDirectoryAdapter(t *testing.T) (*DirectoryAdapter, *fakeDirectory) {
	dir := &fakeDirectory{
		accounts: map[string]string{
			"cn=svc,dc=corp":            "svc-pass",
			"cn=jdoe,ou=staff,dc=corp":  "dir-pass",
			"cn=stray,ou=staff,dc=corp": "stray-pass",
		},
		entries: map[string][]DirectoryEntry{
			"(sAMAccountName=jdoe)": {{DN: "cn=jdoe,ou=staff,dc=corp", Attributes: map[string]string{
				"displayName": "Doe, John", "givenName": "John", "sn": "Doe", "cn": "jdoe",
			}}},
			"(sAMAccountName=stray)": {{DN: "cn=stray,ou=staff,dc=corp"}},
		},
	}
	creds := newMockCredentialRepository()
	users := newMockUserRepository()
	users.users["u-jdoe"] = &domain.User{ID: "u-jdoe", Username: "jdoe", IsActive: true}
	mapping, _ := domain.NewDirectoryCredential("u-jdoe", "jdoe")
	creds.add(mapping)

	cfg := DirectoryConfig{
		BaseDN:       "dc=corp",
		BindDN:       "cn=svc,dc=corp",
		BindPassword: "svc-pass",
		Retry:        &retry.Config{MaxRetries: 2, InitialInterval: 1, MaxInterval: 1},
	}
	return NewDirectoryAdapter(dir, cfg, creds, users), dir
}

func TestDirectoryAdapter_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("bind succeeds with mapping", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		res, err := a.Authenticate(ctx, "jdoe", "dir-pass")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if res.User.ID != "u-jdoe" || res.Credential.Type != domain.CredentialLDAP {
			t.Errorf("unexpected result %+v", res)
		}
		if res.DisplayName != "Doe, John" {
			t.Errorf("DisplayName = %q", res.DisplayName)
		}
		if dir.closed != 1 {
			t.Errorf("connection closed %d times, want 1", dir.closed)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		_, err := a.Authenticate(ctx, "jdoe", "nope")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
		if dir.closed != 1 {
			t.Errorf("connection closed %d times, want 1", dir.closed)
		}
	})

	t.Run("bind succeeds without mapping", func(t *testing.T) {
		a, _ := setupDirectoryAdapter(t)
		_, err := a.Authenticate(ctx, "stray", "stray-pass")
		if !errors.Is(err, domain.ErrInvalidCredentials) || !errors.Is(err, domain.ErrDirectoryUserNotAuthorized) {
			t.Errorf("error = %v, want invalid credentials / not authorized", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		a, _ := setupDirectoryAdapter(t)
		_, err := a.Authenticate(ctx, "ghost", "whatever")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("empty password never reaches the directory", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		_, err := a.Authenticate(ctx, "jdoe", "")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
		if dir.dials != 0 {
			t.Errorf("dialed %d times, want 0", dir.dials)
		}
	})

	t.Run("filter is escaped", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		_, _ = a.Authenticate(ctx, "*)(cn=*", "x")
		if len(dir.filters) != 1 || strings.Contains(dir.filters[0], "*)(") {
			t.Errorf("filters = %v", dir.filters)
		}
	})

	t.Run("transient dial failure is retried", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		dir.dialErrs = []error{errors.New("connection reset")}
		if _, err := a.Authenticate(ctx, "jdoe", "dir-pass"); err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if dir.dials != 2 {
			t.Errorf("dials = %d, want 2", dir.dials)
		}
	})

	t.Run("directory down", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		down := errors.New("connection refused")
		dir.dialErrs = []error{down, down, down}
		_, err := a.Authenticate(ctx, "jdoe", "dir-pass")
		if !errors.Is(err, domain.ErrDirectoryUnavailable) {
			t.Errorf("error = %v, want ErrDirectoryUnavailable", err)
		}
	})

	t.Run("search failure", func(t *testing.T) {
		a, dir := setupDirectoryAdapter(t)
		dir.searchErr = errors.New("server busy")
		_, err := a.Authenticate(ctx, "jdoe", "dir-pass")
		if !errors.Is(err, domain.ErrDirectoryUnavailable) {
			t.Errorf("error = %v, want ErrDirectoryUnavailable", err)
		}
		if dir.closed != 1 {
			t.Errorf("connection closed %d times, want 1", dir.closed)
		}
	})
}
