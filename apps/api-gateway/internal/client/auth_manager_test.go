package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
)

// slowServer never answers ValidateToken before the caller gives up
type slowServer struct {
	authrpc.UnimplementedAuthServiceServer
}

func (slowServer) ValidateToken(ctx context.Context, _ *authrpc.ValidateTokenRequest) (*authrpc.ValidateTokenResponse, error) {
	<-ctx.Done()
	return nil, status.FromContextError(ctx.Err()).Err()
}

func (slowServer) Logout(context.Context, *authrpc.LogoutRequest) (*authrpc.LogoutResponse, error) {
	return &authrpc.LogoutResponse{Success: true, Message: "Logged out successfully"}, nil
}

func startAuthManager(t *testing.T) (*health.Server, *AuthManager) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	authrpc.RegisterAuthServiceServer(srv, slowServer{})
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(authrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	m, err := NewAuthManager(&Config{Target: "passthrough:///bufnet", CallTimeout: 200 * time.Millisecond},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return hs, m
}

func TestAuthManager_Ping(t *testing.T) {
	hs, m := startAuthManager(t)
	ctx := context.Background()

	require.NoError(t, m.Ping(ctx))

	hs.SetServingStatus(authrpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.Error(t, m.Ping(ctx))
}

func TestAuthManager_Calls(t *testing.T) {
	_, m := startAuthManager(t)

	resp, err := m.Logout(context.Background(), &authrpc.LogoutRequest{UserID: "u-1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestAuthManager_CallTimeout(t *testing.T) {
	_, m := startAuthManager(t)

	start := time.Now()
	_, err := m.ValidateToken(context.Background(), &authrpc.ValidateTokenRequest{Token: "t"})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	assert.Less(t, time.Since(start), 5*time.Second)

	// A caller deadline wins over the default
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.ValidateToken(ctx, &authrpc.ValidateTokenRequest{Token: "t"})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}
