package authrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/prohmpiriya/hr-identity/pkg/telemetry"
)

// AuthServiceClient is the caller side of AuthService
type AuthServiceClient interface {
	Authenticate(ctx context.Context, in *AuthenticateRequest) (*AuthenticateResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest) (*RefreshTokenResponse, error)
	ValidateToken(ctx context.Context, in *ValidateTokenRequest) (*ValidateTokenResponse, error)
	Logout(ctx context.Context, in *LogoutRequest) (*LogoutResponse, error)

	GetUserPermissions(ctx context.Context, in *GetUserPermissionsRequest) (*GetUserPermissionsResponse, error)
	AssignRoles(ctx context.Context, in *AssignRolesRequest) (*UserResponse, error)
	SetRolePermissions(ctx context.Context, in *SetRolePermissionsRequest) (*RoleResponse, error)
	ListRoles(ctx context.Context, in *ListRolesRequest) (*ListRolesResponse, error)
	CreateRole(ctx context.Context, in *CreateRoleRequest) (*RoleResponse, error)
	ListPermissions(ctx context.Context, in *ListPermissionsRequest) (*ListPermissionsResponse, error)
	CreatePermission(ctx context.Context, in *CreatePermissionRequest) (*PermissionResponse, error)
	UpdatePermission(ctx context.Context, in *UpdatePermissionRequest) (*PermissionResponse, error)
	DeletePermission(ctx context.Context, in *DeletePermissionRequest) (*DeletePermissionResponse, error)

	CreateUser(ctx context.Context, in *CreateUserRequest) (*UserResponse, error)
	ListUsers(ctx context.Context, in *ListUsersRequest) (*ListUsersResponse, error)
	SetUserActive(ctx context.Context, in *SetUserActiveRequest) (*UserResponse, error)
	SetCredentialActive(ctx context.Context, in *SetCredentialActiveRequest) (*CredentialResponse, error)
	ChangePassword(ctx context.Context, in *ChangePasswordRequest) (*ChangePasswordResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient wraps an existing connection. Calls force the JSON
// content subtype so the connection does not need to be dialed for it.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc: cc}
}

// Dial opens a plaintext connection to the auth manager with tracing and the
// JSON codec enabled. Extra options are appended after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithChainUnaryInterceptor(telemetry.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial auth manager %s: %w", target, err)
	}
	return conn, nil
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) Authenticate(ctx context.Context, in *AuthenticateRequest) (*AuthenticateResponse, error) {
	return invoke[AuthenticateResponse](ctx, c.cc, "Authenticate", in)
}

func (c *authServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, "RefreshToken", in)
}

func (c *authServiceClient) ValidateToken(ctx context.Context, in *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	return invoke[ValidateTokenResponse](ctx, c.cc, "ValidateToken", in)
}

func (c *authServiceClient) Logout(ctx context.Context, in *LogoutRequest) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, "Logout", in)
}

func (c *authServiceClient) GetUserPermissions(ctx context.Context, in *GetUserPermissionsRequest) (*GetUserPermissionsResponse, error) {
	return invoke[GetUserPermissionsResponse](ctx, c.cc, "GetUserPermissions", in)
}

func (c *authServiceClient) AssignRoles(ctx context.Context, in *AssignRolesRequest) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, "AssignRoles", in)
}

func (c *authServiceClient) SetRolePermissions(ctx context.Context, in *SetRolePermissionsRequest) (*RoleResponse, error) {
	return invoke[RoleResponse](ctx, c.cc, "SetRolePermissions", in)
}

func (c *authServiceClient) ListRoles(ctx context.Context, in *ListRolesRequest) (*ListRolesResponse, error) {
	return invoke[ListRolesResponse](ctx, c.cc, "ListRoles", in)
}

func (c *authServiceClient) CreateRole(ctx context.Context, in *CreateRoleRequest) (*RoleResponse, error) {
	return invoke[RoleResponse](ctx, c.cc, "CreateRole", in)
}

func (c *authServiceClient) ListPermissions(ctx context.Context, in *ListPermissionsRequest) (*ListPermissionsResponse, error) {
	return invoke[ListPermissionsResponse](ctx, c.cc, "ListPermissions", in)
}

func (c *authServiceClient) CreatePermission(ctx context.Context, in *CreatePermissionRequest) (*PermissionResponse, error) {
	return invoke[PermissionResponse](ctx, c.cc, "CreatePermission", in)
}

func (c *authServiceClient) UpdatePermission(ctx context.Context, in *UpdatePermissionRequest) (*PermissionResponse, error) {
	return invoke[PermissionResponse](ctx, c.cc, "UpdatePermission", in)
}

func (c *authServiceClient) DeletePermission(ctx context.Context, in *DeletePermissionRequest) (*DeletePermissionResponse, error) {
	return invoke[DeletePermissionResponse](ctx, c.cc, "DeletePermission", in)
}

func (c *authServiceClient) CreateUser(ctx context.Context, in *CreateUserRequest) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, "CreateUser", in)
}

func (c *authServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c.cc, "ListUsers", in)
}

func (c *authServiceClient) SetUserActive(ctx context.Context, in *SetUserActiveRequest) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, "SetUserActive", in)
}

func (c *authServiceClient) SetCredentialActive(ctx context.Context, in *SetCredentialActiveRequest) (*CredentialResponse, error) {
	return invoke[CredentialResponse](ctx, c.cc, "SetCredentialActive", in)
}

func (c *authServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest) (*ChangePasswordResponse, error) {
	return invoke[ChangePasswordResponse](ctx, c.cc, "ChangePassword", in)
}
