// Package authrpc is the gRPC contract between the gateway and the auth
// manager. Messages travel as JSON using the codec registered in this package.
package authrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "hr.identity.v1.AuthService"

// AuthServiceServer is implemented by the auth manager
type AuthServiceServer interface {
	Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	ValidateToken(context.Context, *ValidateTokenRequest) (*ValidateTokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)

	GetUserPermissions(context.Context, *GetUserPermissionsRequest) (*GetUserPermissionsResponse, error)
	AssignRoles(context.Context, *AssignRolesRequest) (*UserResponse, error)
	SetRolePermissions(context.Context, *SetRolePermissionsRequest) (*RoleResponse, error)
	ListRoles(context.Context, *ListRolesRequest) (*ListRolesResponse, error)
	CreateRole(context.Context, *CreateRoleRequest) (*RoleResponse, error)
	ListPermissions(context.Context, *ListPermissionsRequest) (*ListPermissionsResponse, error)
	CreatePermission(context.Context, *CreatePermissionRequest) (*PermissionResponse, error)
	UpdatePermission(context.Context, *UpdatePermissionRequest) (*PermissionResponse, error)
	DeletePermission(context.Context, *DeletePermissionRequest) (*DeletePermissionResponse, error)

	CreateUser(context.Context, *CreateUserRequest) (*UserResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	SetUserActive(context.Context, *SetUserActiveRequest) (*UserResponse, error)
	SetCredentialActive(context.Context, *SetCredentialActiveRequest) (*CredentialResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*ChangePasswordResponse, error)
}

// UnimplementedAuthServiceServer answers every method with codes.Unimplemented.
// Embed it to stay forward compatible when methods are added.
type UnimplementedAuthServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedAuthServiceServer) Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error) {
	return nil, unimplemented("Authenticate")
}
func (UnimplementedAuthServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedAuthServiceServer) ValidateToken(context.Context, *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	return nil, unimplemented("ValidateToken")
}
func (UnimplementedAuthServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, unimplemented("Logout")
}
func (UnimplementedAuthServiceServer) GetUserPermissions(context.Context, *GetUserPermissionsRequest) (*GetUserPermissionsResponse, error) {
	return nil, unimplemented("GetUserPermissions")
}
func (UnimplementedAuthServiceServer) AssignRoles(context.Context, *AssignRolesRequest) (*UserResponse, error) {
	return nil, unimplemented("AssignRoles")
}
func (UnimplementedAuthServiceServer) SetRolePermissions(context.Context, *SetRolePermissionsRequest) (*RoleResponse, error) {
	return nil, unimplemented("SetRolePermissions")
}
func (UnimplementedAuthServiceServer) ListRoles(context.Context, *ListRolesRequest) (*ListRolesResponse, error) {
	return nil, unimplemented("ListRoles")
}
func (UnimplementedAuthServiceServer) CreateRole(context.Context, *CreateRoleRequest) (*RoleResponse, error) {
	return nil, unimplemented("CreateRole")
}
func (UnimplementedAuthServiceServer) ListPermissions(context.Context, *ListPermissionsRequest) (*ListPermissionsResponse, error) {
	return nil, unimplemented("ListPermissions")
}
func (UnimplementedAuthServiceServer) CreatePermission(context.Context, *CreatePermissionRequest) (*PermissionResponse, error) {
	return nil, unimplemented("CreatePermission")
}
func (UnimplementedAuthServiceServer) UpdatePermission(context.Context, *UpdatePermissionRequest) (*PermissionResponse, error) {
	return nil, unimplemented("UpdatePermission")
}
func (UnimplementedAuthServiceServer) DeletePermission(context.Context, *DeletePermissionRequest) (*DeletePermissionResponse, error) {
	return nil, unimplemented("DeletePermission")
}
func (UnimplementedAuthServiceServer) CreateUser(context.Context, *CreateUserRequest) (*UserResponse, error) {
	return nil, unimplemented("CreateUser")
}
func (UnimplementedAuthServiceServer) ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error) {
	return nil, unimplemented("ListUsers")
}
func (UnimplementedAuthServiceServer) SetUserActive(context.Context, *SetUserActiveRequest) (*UserResponse, error) {
	return nil, unimplemented("SetUserActive")
}
func (UnimplementedAuthServiceServer) SetCredentialActive(context.Context, *SetCredentialActiveRequest) (*CredentialResponse, error) {
	return nil, unimplemented("SetCredentialActive")
}
func (UnimplementedAuthServiceServer) ChangePassword(context.Context, *ChangePasswordRequest) (*ChangePasswordResponse, error) {
	return nil, unimplemented("ChangePassword")
}

// RegisterAuthServiceServer attaches srv to a gRPC server
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the wire path of method, e.g. /hr.identity.v1.AuthService/Logout
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req any, Resp any](method string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuthServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(AuthServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes AuthService for grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Authenticate", AuthServiceServer.Authenticate),
		unary("RefreshToken", AuthServiceServer.RefreshToken),
		unary("ValidateToken", AuthServiceServer.ValidateToken),
		unary("Logout", AuthServiceServer.Logout),
		unary("GetUserPermissions", AuthServiceServer.GetUserPermissions),
		unary("AssignRoles", AuthServiceServer.AssignRoles),
		unary("SetRolePermissions", AuthServiceServer.SetRolePermissions),
		unary("ListRoles", AuthServiceServer.ListRoles),
		unary("CreateRole", AuthServiceServer.CreateRole),
		unary("ListPermissions", AuthServiceServer.ListPermissions),
		unary("CreatePermission", AuthServiceServer.CreatePermission),
		unary("UpdatePermission", AuthServiceServer.UpdatePermission),
		unary("DeletePermission", AuthServiceServer.DeletePermission),
		unary("CreateUser", AuthServiceServer.CreateUser),
		unary("ListUsers", AuthServiceServer.ListUsers),
		unary("SetUserActive", AuthServiceServer.SetUserActive),
		unary("SetCredentialActive", AuthServiceServer.SetCredentialActive),
		unary("ChangePassword", AuthServiceServer.ChangePassword),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hr/identity/v1/auth.json",
}
