package handler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/dto"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/service"
	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
)

// GRPCHandler serves the AuthService RPC contract
type GRPCHandler struct {
	authrpc.UnimplementedAuthServiceServer

	auth  service.AuthService
	rbac  service.RBACService
	users service.UserService
	log   *logger.Logger
}

// NewGRPCHandler creates a new GRPCHandler
func NewGRPCHandler(auth service.AuthService, rbac service.RBACService, users service.UserService) *GRPCHandler {
	return &GRPCHandler{
		auth:  auth,
		rbac:  rbac,
		users: users,
		log:   logger.Get().With(zap.String("component", "grpc_handler")),
	}
}

// statusError maps service errors onto gRPC status codes. Unknown errors are
// logged and reported as Internal without detail.
func (h *GRPCHandler) statusError(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrSessionInvalid):
		return status.Error(codes.Unauthenticated, domain.ErrSessionInvalid.Error())
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		return status.Error(codes.Unavailable, domain.ErrDirectoryUnavailable.Error())
	case errors.Is(err, domain.ErrNotImplemented):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRoleNotFound),
		errors.Is(err, domain.ErrPermissionNotFound),
		errors.Is(err, domain.ErrCredentialNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrRoleExists),
		errors.Is(err, domain.ErrPermissionExists),
		errors.Is(err, domain.ErrCredentialExists):
		return status.Error(codes.AlreadyExists, err.Error())
	}

	h.log.ErrorContext(ctx, "RPC failed", zap.String("method", method), zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func (h *GRPCHandler) Authenticate(ctx context.Context, req *authrpc.AuthenticateRequest) (*authrpc.AuthenticateResponse, error) {
	method, err := domain.ParseCredentialType(req.Type)
	if err != nil {
		// an unsupported method is a rejected login like any other
		h.log.WarnContext(ctx, "Authentication rejected",
			zap.String("identifier", req.Identifier), zap.Error(err))
		return nil, status.Error(codes.Unauthenticated, domain.ErrInvalidCredentials.Error())
	}

	user, err := h.auth.Authenticate(ctx, req.Identifier, req.Password, method)
	if err != nil {
		return nil, h.statusError(ctx, "Authenticate", err)
	}

	return &authrpc.AuthenticateResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		FullName:     user.FullName,
		Phone:        user.Phone,
		Roles:        user.Roles,
		Permissions:  user.Permissions,
		RefreshToken: user.RefreshToken,
	}, nil
}

func (h *GRPCHandler) RefreshToken(ctx context.Context, req *authrpc.RefreshTokenRequest) (*authrpc.RefreshTokenResponse, error) {
	result, err := h.auth.RefreshToken(ctx, req.RefreshToken, req.DeviceInfo)
	if err != nil {
		return nil, h.statusError(ctx, "RefreshToken", err)
	}
	return &authrpc.RefreshTokenResponse{
		RefreshToken: result.RefreshToken,
		User:         toUserProfile(result.User),
	}, nil
}

func (h *GRPCHandler) ValidateToken(ctx context.Context, req *authrpc.ValidateTokenRequest) (*authrpc.ValidateTokenResponse, error) {
	return &authrpc.ValidateTokenResponse{Valid: h.auth.ValidateToken(ctx, req.Token)}, nil
}

func (h *GRPCHandler) Logout(ctx context.Context, req *authrpc.LogoutRequest) (*authrpc.LogoutResponse, error) {
	result, err := h.auth.Logout(ctx, req.UserID, req.AccessToken)
	if err != nil {
		return nil, h.statusError(ctx, "Logout", err)
	}
	return &authrpc.LogoutResponse{Success: result.Success, Message: result.Message}, nil
}

func (h *GRPCHandler) GetUserPermissions(ctx context.Context, req *authrpc.GetUserPermissionsRequest) (*authrpc.GetUserPermissionsResponse, error) {
	user, err := h.rbac.GetUserPermissions(ctx, req.UserID)
	if err != nil {
		return nil, h.statusError(ctx, "GetUserPermissions", err)
	}
	return &authrpc.GetUserPermissionsResponse{
		UserID:      user.ID,
		Roles:       user.RoleNames(),
		Permissions: user.PermissionNames(),
	}, nil
}

func (h *GRPCHandler) AssignRoles(ctx context.Context, req *authrpc.AssignRolesRequest) (*authrpc.UserResponse, error) {
	user, err := h.rbac.AssignRoles(ctx, req.UserID, req.RoleIDs)
	if err != nil {
		return nil, h.statusError(ctx, "AssignRoles", err)
	}
	return &authrpc.UserResponse{User: toUserProfile(user)}, nil
}

func (h *GRPCHandler) SetRolePermissions(ctx context.Context, req *authrpc.SetRolePermissionsRequest) (*authrpc.RoleResponse, error) {
	role, err := h.rbac.SetRolePermissions(ctx, req.RoleID, req.Permissions)
	if err != nil {
		return nil, h.statusError(ctx, "SetRolePermissions", err)
	}
	return &authrpc.RoleResponse{Role: toRoleDetail(role)}, nil
}

func (h *GRPCHandler) ListRoles(ctx context.Context, _ *authrpc.ListRolesRequest) (*authrpc.ListRolesResponse, error) {
	roles, err := h.rbac.ListRoles(ctx)
	if err != nil {
		return nil, h.statusError(ctx, "ListRoles", err)
	}
	out := make([]authrpc.RoleDetail, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleDetail(r))
	}
	return &authrpc.ListRolesResponse{Roles: out}, nil
}

func (h *GRPCHandler) CreateRole(ctx context.Context, req *authrpc.CreateRoleRequest) (*authrpc.RoleResponse, error) {
	role, err := h.rbac.CreateRole(ctx, req.Name, req.Description, req.Permissions)
	if err != nil {
		return nil, h.statusError(ctx, "CreateRole", err)
	}
	return &authrpc.RoleResponse{Role: toRoleDetail(role)}, nil
}

func (h *GRPCHandler) ListPermissions(ctx context.Context, _ *authrpc.ListPermissionsRequest) (*authrpc.ListPermissionsResponse, error) {
	perms, err := h.rbac.ListPermissions(ctx)
	if err != nil {
		return nil, h.statusError(ctx, "ListPermissions", err)
	}
	out := make([]authrpc.PermissionInfo, 0, len(perms))
	for _, p := range perms {
		out = append(out, toPermissionInfo(p))
	}
	return &authrpc.ListPermissionsResponse{Permissions: out}, nil
}

func (h *GRPCHandler) CreatePermission(ctx context.Context, req *authrpc.CreatePermissionRequest) (*authrpc.PermissionResponse, error) {
	perm, err := h.rbac.CreatePermission(ctx, &dto.PermissionInput{
		Name:        req.Name,
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		return nil, h.statusError(ctx, "CreatePermission", err)
	}
	return &authrpc.PermissionResponse{Permission: toPermissionInfo(perm)}, nil
}

func (h *GRPCHandler) UpdatePermission(ctx context.Context, req *authrpc.UpdatePermissionRequest) (*authrpc.PermissionResponse, error) {
	perm, err := h.rbac.UpdatePermission(ctx, req.ID, &dto.PermissionInput{
		Name:        req.Name,
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		return nil, h.statusError(ctx, "UpdatePermission", err)
	}
	return &authrpc.PermissionResponse{Permission: toPermissionInfo(perm)}, nil
}

func (h *GRPCHandler) DeletePermission(ctx context.Context, req *authrpc.DeletePermissionRequest) (*authrpc.DeletePermissionResponse, error) {
	if err := h.rbac.DeletePermission(ctx, req.ID); err != nil {
		return nil, h.statusError(ctx, "DeletePermission", err)
	}
	return &authrpc.DeletePermissionResponse{Success: true}, nil
}

func (h *GRPCHandler) CreateUser(ctx context.Context, req *authrpc.CreateUserRequest) (*authrpc.UserResponse, error) {
	user, err := h.users.CreateUser(ctx, &dto.CreateUserInput{
		Username:         req.Username,
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Password:         req.Password,
		DirectoryAccount: req.DirectoryAccount,
		RoleIDs:          req.RoleIDs,
	})
	if err != nil {
		return nil, h.statusError(ctx, "CreateUser", err)
	}
	return &authrpc.UserResponse{User: toUserProfile(user)}, nil
}

func (h *GRPCHandler) ListUsers(ctx context.Context, req *authrpc.ListUsersRequest) (*authrpc.ListUsersResponse, error) {
	q := dto.ListUsersQuery{Page: req.Page, Limit: req.Limit, Search: req.Search}
	q.Normalize()

	users, total, err := h.users.ListUsers(ctx, q)
	if err != nil {
		return nil, h.statusError(ctx, "ListUsers", err)
	}
	out := make([]authrpc.UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, toUserProfile(u))
	}
	return &authrpc.ListUsersResponse{Users: out, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (h *GRPCHandler) SetUserActive(ctx context.Context, req *authrpc.SetUserActiveRequest) (*authrpc.UserResponse, error) {
	user, err := h.users.SetUserActive(ctx, req.UserID, req.Active)
	if err != nil {
		return nil, h.statusError(ctx, "SetUserActive", err)
	}
	return &authrpc.UserResponse{User: toUserProfile(user)}, nil
}

func (h *GRPCHandler) SetCredentialActive(ctx context.Context, req *authrpc.SetCredentialActiveRequest) (*authrpc.CredentialResponse, error) {
	typ, err := domain.ParseCredentialType(req.Type)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	cred, err := h.users.SetCredentialActive(ctx, req.UserID, typ, req.Active)
	if err != nil {
		return nil, h.statusError(ctx, "SetCredentialActive", err)
	}
	return &authrpc.CredentialResponse{Credential: toCredentialInfo(cred)}, nil
}

func (h *GRPCHandler) ChangePassword(ctx context.Context, req *authrpc.ChangePasswordRequest) (*authrpc.ChangePasswordResponse, error) {
	if err := h.users.ChangePassword(ctx, req.UserID, req.Password); err != nil {
		return nil, h.statusError(ctx, "ChangePassword", err)
	}
	return &authrpc.ChangePasswordResponse{Success: true}, nil
}

func toUserProfile(u *domain.User) authrpc.UserProfile {
	roles := make([]authrpc.RoleInfo, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, authrpc.RoleInfo{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	profile := authrpc.UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		Roles:       roles,
		Permissions: u.PermissionNames(),
	}
	if !u.CreatedAt.IsZero() {
		profile.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return profile
}

func toRoleDetail(r *domain.Role) authrpc.RoleDetail {
	return authrpc.RoleDetail{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.PermissionNames(),
	}
}

func toPermissionInfo(p *domain.Permission) authrpc.PermissionInfo {
	return authrpc.PermissionInfo{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
	}
}

func toCredentialInfo(c *domain.Credential) authrpc.CredentialInfo {
	info := authrpc.CredentialInfo{
		ID:         c.ID,
		Type:       string(c.Type),
		Identifier: c.Identifier,
		IsActive:   c.IsActive,
	}
	if c.LastLoginAt != nil {
		info.LastLoginAt = c.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return info
}
