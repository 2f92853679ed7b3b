package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is a named bundle of permissions
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HasPermission reports whether the role grants perm
func (r *Role) HasPermission(perm string) bool {
	for _, p := range r.Permissions {
		if p.Name == perm {
			return true
		}
	}
	return false
}

// PermissionNames returns the names of the role's permissions
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// Permission is an atomic capability named resource.action
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParsePermissionName splits "employees.read" into resource and action
func ParsePermissionName(name string) (resource, action string, err error) {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", fmt.Errorf("%w: permission %q is not resource.action", ErrInvalidInput, name)
	}
	return name[:i], name[i+1:], nil
}

// NewPermission builds a permission from its name. Resource and action are
// derived from the name when not given.
func NewPermission(name, resource, action, description string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	if resource == "" || action == "" {
		r, a, err := ParsePermissionName(name)
		if err != nil {
			return nil, err
		}
		if resource == "" {
			resource = r
		}
		if action == "" {
			action = a
		}
	}
	return &Permission{
		Name:        name,
		Resource:    resource,
		Action:      action,
		Description: description,
	}, nil
}

// UniqueNonEmpty trims, drops empty entries and de-duplicates preserving order
func UniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
