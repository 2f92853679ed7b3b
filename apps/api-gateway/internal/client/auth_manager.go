// Package client connects the gateway to the auth manager
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/prohmpiriya/hr-identity/pkg/authrpc"
)

// Config holds auth manager connection settings
type Config struct {
	Target      string
	CallTimeout time.Duration
}

// AuthManager is an AuthService client bound to one connection
type AuthManager struct {
	authrpc.AuthServiceClient
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewAuthManager creates the connection lazily; the first RPC dials
func NewAuthManager(cfg *Config, opts ...grpc.DialOption) (*AuthManager, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	opts = append([]grpc.DialOption{grpc.WithChainUnaryInterceptor(callTimeout(cfg.CallTimeout))}, opts...)

	conn, err := authrpc.Dial(cfg.Target, opts...)
	if err != nil {
		return nil, err
	}
	return &AuthManager{
		AuthServiceClient: authrpc.NewAuthServiceClient(conn),
		conn:              conn,
		health:            healthpb.NewHealthClient(conn),
	}, nil
}

// Ping asks the auth manager's health service whether AuthService is serving
func (m *AuthManager) Ping(ctx context.Context) error {
	// The health service speaks protobuf, not the connection's JSON default
	resp, err := m.health.Check(ctx, &healthpb.HealthCheckRequest{Service: authrpc.ServiceName},
		grpc.CallContentSubtype("proto"))
	if err != nil {
		return fmt.Errorf("auth manager health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("auth manager status %s", resp.GetStatus())
	}
	return nil
}

// Close closes the underlying connection
func (m *AuthManager) Close() error {
	return m.conn.Close()
}

// callTimeout bounds calls whose context carries no deadline
func callTimeout(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
