package authrpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubServer struct {
	UnimplementedAuthServiceServer
	lastAuth *AuthenticateRequest
}

func (s *stubServer) Authenticate(_ context.Context, req *AuthenticateRequest) (*AuthenticateResponse, error) {
	s.lastAuth = req
	if req.Password != "12345!" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return &AuthenticateResponse{
		ID:           "u-1",
		Username:     req.Identifier,
		Roles:        []string{"admin"},
		Permissions:  []string{"users.manage"},
		RefreshToken: "rt",
	}, nil
}

func (s *stubServer) SetCredentialActive(_ context.Context, req *SetCredentialActiveRequest) (*CredentialResponse, error) {
	return &CredentialResponse{Credential: CredentialInfo{ID: "c-1", Type: req.Type, Identifier: "admin", IsActive: req.Active}}, nil
}

func (s *stubServer) ValidateToken(_ context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	return &ValidateTokenResponse{Valid: req.Token == "good"}, nil
}

func startServer(t *testing.T, srv AuthServiceServer, opts ...grpc.ServerOption) AuthServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterAuthServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewAuthServiceClient(conn)
}

func TestAuthService_RoundTrip(t *testing.T) {
	stub := &stubServer{}
	client := startServer(t, stub)
	ctx := context.Background()

	t.Run("authenticate", func(t *testing.T) {
		resp, err := client.Authenticate(ctx, &AuthenticateRequest{Identifier: "admin", Password: "12345!", Type: TypePassword})
		require.NoError(t, err)
		assert.Equal(t, "u-1", resp.ID)
		assert.Equal(t, []string{"admin"}, resp.Roles)
		assert.Equal(t, TypePassword, stub.lastAuth.Type)
	})

	t.Run("status codes survive the wire", func(t *testing.T) {
		_, err := client.Authenticate(ctx, &AuthenticateRequest{Identifier: "admin", Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("validate", func(t *testing.T) {
		resp, err := client.ValidateToken(ctx, &ValidateTokenRequest{Token: "good"})
		require.NoError(t, err)
		assert.True(t, resp.Valid)

		resp, err = client.ValidateToken(ctx, &ValidateTokenRequest{Token: "bad"})
		require.NoError(t, err)
		assert.False(t, resp.Valid)
	})

	t.Run("unimplemented", func(t *testing.T) {
		_, err := client.ListRoles(ctx, &ListRolesRequest{})
		assert.Equal(t, codes.Unimplemented, status.Code(err))

		_, err = client.ChangePassword(ctx, &ChangePasswordRequest{UserID: "u-1", Password: "pw"})
		assert.Equal(t, codes.Unimplemented, status.Code(err))
	})

	t.Run("lifecycle", func(t *testing.T) {
		resp, err := client.SetCredentialActive(ctx, &SetCredentialActiveRequest{UserID: "u-1", Type: TypeLDAP, Active: true})
		require.NoError(t, err)
		assert.Equal(t, CredentialInfo{ID: "c-1", Type: TypeLDAP, Identifier: "admin", IsActive: true}, resp.Credential)
	})
}

func TestAuthService_InterceptorSeesFullMethod(t *testing.T) {
	var seen string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}
	client := startServer(t, &stubServer{}, grpc.UnaryInterceptor(interceptor))

	_, err := client.ValidateToken(context.Background(), &ValidateTokenRequest{Token: "good"})
	require.NoError(t, err)
	assert.Equal(t, "/hr.identity.v1.AuthService/ValidateToken", seen)
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	assert.Equal(t, "json", c.Name())

	b, err := c.Marshal(&LogoutResponse{Success: true, Message: "Logged out successfully"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, string(b))

	var out ListRolesRequest
	assert.NoError(t, c.Unmarshal(nil, &out))
}
