package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func sampleUser() *User {
	return &User{
		ID:        "u-1",
		Username:  "jdoe",
		FirstName: "Jane",
		LastName:  "Doe",
		IsActive:  true,
		Roles: []Role{
			{Name: "hr_manager", Permissions: []Permission{
				{Name: "employees.read"}, {Name: "employees.update"},
			}},
			{Name: "user", Permissions: []Permission{
				{Name: "employees.read"}, {Name: "departments.read"},
			}},
		},
	}
}

func TestUser_PermissionNames(t *testing.T) {
	got := sampleUser().PermissionNames()
	want := []string{"employees.read", "employees.update", "departments.read"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PermissionNames() = %v, want %v", got, want)
	}

	empty := (&User{}).PermissionNames()
	if empty == nil || len(empty) != 0 {
		t.Errorf("PermissionNames() on user without roles = %#v, want empty slice", empty)
	}
}

func TestUser_RolesAndPermissions(t *testing.T) {
	u := sampleUser()

	if !reflect.DeepEqual(u.RoleNames(), []string{"hr_manager", "user"}) {
		t.Errorf("RoleNames() = %v", u.RoleNames())
	}
	if !u.HasRole("user") || u.HasRole("admin") {
		t.Error("HasRole() mismatch")
	}
	if !u.HasPermission("departments.read") || u.HasPermission("roles.manage") {
		t.Error("HasPermission() mismatch")
	}
}

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Jane", "Doe", "Jane Doe"},
		{"", "Doe", "Doe"},
		{"Jane", "", "Jane"},
		{"", "", ""},
	}
	for _, tt := range tests {
		u := &User{FirstName: tt.first, LastName: tt.last}
		if got := u.FullName(); got != tt.want {
			t.Errorf("FullName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(" admin ", "admin@system.local", "Admin", "System", "")
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if u.Username != "admin" || !u.IsActive {
		t.Errorf("NewUser() = %+v", u)
	}

	if _, err := NewUser("", "", "", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty username error = %v, want ErrInvalidInput", err)
	}
	if _, err := NewUser("abcdefghijklmnopqrstu", "", "", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("21 char username error = %v, want ErrInvalidInput", err)
	}
}

func TestParsePermissionName(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		action   string
		wantErr  bool
	}{
		{name: "employees.read", resource: "employees", action: "read"},
		{name: "hr.reports.export", resource: "hr.reports", action: "export"},
		{name: "employees", wantErr: true},
		{name: ".read", wantErr: true},
		{name: "employees.", wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, a, err := ParsePermissionName(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil || r != tt.resource || a != tt.action {
				t.Errorf("got (%q, %q, %v), want (%q, %q)", r, a, err, tt.resource, tt.action)
			}
		})
	}
}

func TestNewPermission(t *testing.T) {
	p, err := NewPermission("users.manage", "", "", "Manage users")
	if err != nil {
		t.Fatalf("NewPermission() error = %v", err)
	}
	if p.Resource != "users" || p.Action != "manage" {
		t.Errorf("derived resource/action = %q/%q", p.Resource, p.Action)
	}

	p, err = NewPermission("reports", "reports", "export", "")
	if err != nil || p.Action != "export" {
		t.Errorf("explicit resource/action: %+v, %v", p, err)
	}
}

func TestUniqueNonEmpty(t *testing.T) {
	got := UniqueNonEmpty([]string{"b", " a ", "", "b", "a"})
	if !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("UniqueNonEmpty() = %v", got)
	}
}

func TestParseCredentialType(t *testing.T) {
	tests := []struct {
		in      string
		want    CredentialType
		wantErr bool
	}{
		{"", CredentialPassword, false},
		{"PASSWORD", CredentialPassword, false},
		{"db", CredentialPassword, false},
		{"LDAP", CredentialLDAP, false},
		{"api_key", CredentialAPIKey, false},
		{"kerberos", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCredentialType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseCredentialType(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCredential_HashInvariant(t *testing.T) {
	if _, err := NewPasswordCredential("u-1", "admin", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("password credential without hash: err = %v", err)
	}
	c, err := NewPasswordCredential("u-1", "admin", "$2a$10$hash")
	if err != nil || !c.Usable() {
		t.Errorf("password credential: %+v, %v", c, err)
	}

	d, err := NewDirectoryCredential("u-1", "jdoe")
	if err != nil || d.PasswordHash != nil {
		t.Errorf("directory credential: %+v, %v", d, err)
	}
	hash := "x"
	d.PasswordHash = &hash
	if err := d.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("directory credential with hash: err = %v", err)
	}

	c.IsActive = false
	if c.Usable() {
		t.Error("inactive credential must not be usable")
	}
}

func TestRefreshToken_State(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.IsActive(now) {
		t.Error("fresh token should be active")
	}
	tok.IsRevoked = true
	if tok.IsActive(now) {
		t.Error("revoked token should not be active")
	}
	expired := &RefreshToken{ExpiresAt: now.Add(-time.Second)}
	if !expired.IsExpired(now) || expired.IsActive(now) {
		t.Error("expired token state mismatch")
	}
}
