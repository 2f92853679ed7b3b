package dto

import "strings"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CreateUserInput provisions a user with at most one credential per method
type CreateUserInput struct {
	Username         string
	Email            string
	FirstName        string
	LastName         string
	Phone            string
	Password         string
	DirectoryAccount string
	RoleIDs          []string
}

// HasCredential reports whether at least one login method was requested
func (in *CreateUserInput) HasCredential() bool {
	return in.Password != "" || strings.TrimSpace(in.DirectoryAccount) != ""
}

// ListUsersQuery is a paginated user search
type ListUsersQuery struct {
	Page   int
	Limit  int
	Search string
}

// Normalize clamps page and limit to sane values
func (q *ListUsersQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
}

// Offset is the row offset for the current page
func (q *ListUsersQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// PermissionInput creates or patches a permission. Empty fields are left
// unchanged on update.
type PermissionInput struct {
	Name        string
	Resource    string
	Action      string
	Description string
}
