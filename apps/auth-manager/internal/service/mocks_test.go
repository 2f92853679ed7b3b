package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/event"
)

// memStore backs every mock repository so joins behave like the database
type memStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	userRoles map[string][]string
	roles     map[string]*domain.Role
	rolePerms map[string][]string
	perms     map[string]*domain.Permission
	creds     map[string]*domain.Credential
	tokens    map[string]*domain.RefreshToken

	lastLoginErr error
	rbacErr      error
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*domain.User),
		userRoles: make(map[string][]string),
		roles:     make(map[string]*domain.Role),
		rolePerms: make(map[string][]string),
		perms:     make(map[string]*domain.Permission),
		creds:     make(map[string]*domain.Credential),
		tokens:    make(map[string]*domain.RefreshToken),
	}
}

func (m *memStore) role(id string) *domain.Role {
	r, ok := m.roles[id]
	if !ok {
		return nil
	}
	out := *r
	out.Permissions = []domain.Permission{}
	for _, pid := range m.rolePerms[id] {
		if p, ok := m.perms[pid]; ok {
			out.Permissions = append(out.Permissions, *p)
		}
	}
	return &out
}

func (m *memStore) userWithRoles(id string) *domain.User {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	out := *u
	out.Roles = []domain.Role{}
	for _, rid := range m.userRoles[id] {
		if r := m.role(rid); r != nil {
			out.Roles = append(out.Roles, *r)
		}
	}
	return &out
}

func (m *memStore) permIDs(names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		found := ""
		for id, p := range m.perms {
			if p.Name == name {
				found = id
			}
		}
		if found == "" {
			return nil, domain.ErrPermissionNotFound
		}
		ids = append(ids, found)
	}
	return ids, nil
}

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct{ s *memStore }

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
		if user.Email != "" && u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	stored.Roles = nil
	r.s.users[user.ID] = &stored
	return nil
}

func (r *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, nil
}

func (r *mockUserRepository) find(match func(*domain.User) bool) *domain.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			out := *u
			return &out
		}
	}
	return nil
}

func (r *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (r *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (r *mockUserRepository) GetWithRBAC(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.rbacErr != nil {
		return nil, r.s.rbacErr
	}
	return r.s.userWithRoles(id), nil
}

func (r *mockUserRepository) List(ctx context.Context, q dto.ListUsersQuery) ([]*domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*domain.User
	for id, u := range r.s.users {
		if q.Search == "" || strings.Contains(strings.ToLower(u.Username), strings.ToLower(q.Search)) {
			matched = append(matched, r.s.userWithRoles(id))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })

	total := int64(len(matched))
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *mockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *mockUserRepository) ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, id := range roleIDs {
		if _, ok := r.s.roles[id]; !ok {
			return domain.ErrRoleNotFound
		}
	}
	r.s.userRoles[userID] = append([]string(nil), roleIDs...)
	return nil
}

func (r *mockUserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	delete(r.s.userRoles, id)
	for cid, c := range r.s.creds {
		if c.UserID == id {
			delete(r.s.creds, cid)
		}
	}
	return nil
}

// mockCredentialRepository is a mock implementation of CredentialRepository
type mockCredentialRepository struct{ s *memStore }

func (r *mockCredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.creds {
		if c.IsActive && c.Type == cred.Type && c.Identifier == cred.Identifier {
			return domain.ErrCredentialExists
		}
	}
	cred.ID = uuid.NewString()
	stored := *cred
	r.s.creds[cred.ID] = &stored
	return nil
}

func (r *mockCredentialRepository) FindActiveByIdentifier(ctx context.Context, typ domain.CredentialType, identifier string) (*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.creds {
		if c.IsActive && c.Type == typ && c.Identifier == identifier {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *mockCredentialRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Credential
	for _, c := range r.s.creds {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockCredentialRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.lastLoginErr != nil {
		return r.s.lastLoginErr
	}
	if c, ok := r.s.creds[id]; ok {
		c.LastLoginAt = &at
	}
	return nil
}

func (r *mockCredentialRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.creds[id]
	if !ok || c.Type != domain.CredentialPassword {
		return domain.ErrCredentialNotFound
	}
	c.PasswordHash = &hash
	return nil
}

func (r *mockCredentialRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.creds[id]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	if active && !c.IsActive {
		for _, other := range r.s.creds {
			if other.IsActive && other.Type == c.Type && other.Identifier == c.Identifier {
				return domain.ErrCredentialExists
			}
		}
	}
	c.IsActive = active
	return nil
}

// mockRoleRepository is a mock implementation of RoleRepository
type mockRoleRepository struct{ s *memStore }

func (r *mockRoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Role, 0, len(r.s.roles))
	for id := range r.s.roles {
		out = append(out, r.s.role(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *mockRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.role(id), nil
}

func (r *mockRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, role := range r.s.roles {
		if role.Name == name {
			return r.s.role(id), nil
		}
	}
	return nil, nil
}

func (r *mockRoleRepository) Create(ctx context.Context, role *domain.Role, permissionNames []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Name == role.Name {
			return domain.ErrRoleExists
		}
	}
	ids, err := r.s.permIDs(permissionNames)
	if err != nil {
		return err
	}
	role.ID = uuid.NewString()
	stored := *role
	r.s.roles[role.ID] = &stored
	r.s.rolePerms[role.ID] = ids
	return nil
}

func (r *mockRoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionNames []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[roleID]; !ok {
		return domain.ErrRoleNotFound
	}
	ids, err := r.s.permIDs(permissionNames)
	if err != nil {
		return err
	}
	r.s.rolePerms[roleID] = ids
	return nil
}

func (r *mockRoleRepository) Upsert(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.roles {
		if existing.Name == role.Name {
			existing.Description = role.Description
			role.ID = id
			return nil
		}
	}
	role.ID = uuid.NewString()
	stored := *role
	r.s.roles[role.ID] = &stored
	return nil
}

// mockPermissionRepository is a mock implementation of PermissionRepository
type mockPermissionRepository struct{ s *memStore }

func (r *mockPermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Permission, 0, len(r.s.perms))
	for _, p := range r.s.perms {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *mockPermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.perms[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *mockPermissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *mockPermissionRepository) Create(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.perms {
		if p.Name == perm.Name {
			return domain.ErrPermissionExists
		}
	}
	perm.ID = uuid.NewString()
	stored := *perm
	r.s.perms[perm.ID] = &stored
	return nil
}

func (r *mockPermissionRepository) Update(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[perm.ID]; !ok {
		return domain.ErrPermissionNotFound
	}
	stored := *perm
	r.s.perms[perm.ID] = &stored
	return nil
}

func (r *mockPermissionRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[id]; !ok {
		return domain.ErrPermissionNotFound
	}
	delete(r.s.perms, id)
	for rid, ids := range r.s.rolePerms {
		kept := ids[:0]
		for _, pid := range ids {
			if pid != id {
				kept = append(kept, pid)
			}
		}
		r.s.rolePerms[rid] = kept
	}
	return nil
}

func (r *mockPermissionRepository) Upsert(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.perms {
		if p.Name == perm.Name {
			p.Resource, p.Action, p.Description = perm.Resource, perm.Action, perm.Description
			perm.ID = id
			return nil
		}
	}
	perm.ID = uuid.NewString()
	stored := *perm
	r.s.perms[perm.ID] = &stored
	return nil
}

// mockRefreshTokenRepository mirrors the conditional update of the database
type mockRefreshTokenRepository struct{ s *memStore }

func (r *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[token.Token]; ok {
		return errors.New("duplicate token")
	}
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	stored := *token
	r.s.tokens[token.Token] = &stored
	return nil
}

func (r *mockRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[token]; ok {
		out := *t
		return &out, nil
	}
	return nil, nil
}

func (r *mockRefreshTokenRepository) Rotate(ctx context.Context, presented string, next *domain.RefreshToken, now time.Time) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	parent, ok := r.s.tokens[presented]
	if !ok || !parent.IsActive(now) {
		return nil, nil
	}
	next.ID = uuid.NewString()
	next.UserID = parent.UserID
	next.CreatedAt = now
	child := *next
	r.s.tokens[next.Token] = &child

	parent.IsRevoked = true
	parent.ReplacedBy = &child.ID
	out := *parent
	return &out, nil
}

func (r *mockRefreshTokenRepository) Revoke(ctx context.Context, token string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok || !t.IsActive(now) {
		return false, nil
	}
	t.IsRevoked = true
	return true, nil
}

func (r *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

// activeTokens counts unrevoked tokens of a user
func (r *mockRefreshTokenRepository) activeTokens(userID string) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.UserID == userID && !t.IsRevoked {
			n++
		}
	}
	return n
}

// failingBlacklist answers every call with err
type failingBlacklist struct{ err error }

func (b failingBlacklist) Add(context.Context, string, time.Duration) error { return b.err }
func (b failingBlacklist) Contains(context.Context, string) (bool, error)   { return false, b.err }

// recordingPublisher keeps published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.SecurityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt *event.SecurityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
