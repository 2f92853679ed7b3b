package domain

import (
	"strings"
	"time"
)

// MaxUsernameLength is the column width of users.username
const MaxUsernameLength = 20

// User is the identity record together with its RBAC graph
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name, skipping empty parts
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// RoleNames returns role names in assignment order
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// PermissionNames is the union of all role permissions, de-duplicated by
// name and ordered by first appearance
func (u *User) PermissionNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			names = append(names, p.Name)
		}
	}
	return names
}

// HasRole checks role membership by name
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasPermission checks whether any assigned role grants perm
func (u *User) HasPermission(perm string) bool {
	for _, r := range u.Roles {
		if r.HasPermission(perm) {
			return true
		}
	}
	return false
}

// NewUser validates the identity fields of a user about to be provisioned
func NewUser(username, email, firstName, lastName, phone string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > MaxUsernameLength {
		return nil, ErrInvalidInput
	}
	return &User{
		Username:  username,
		Email:     strings.TrimSpace(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Phone:     strings.TrimSpace(phone),
		IsActive:  true,
		Roles:     []Role{},
	}, nil
}
