package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"gearshare-backend/internal/api/grpc/interceptor"
	"gearshare-backend/internal/security"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) PingContext(ctx context.Context) error {
	return p.err
}

func TestHealthReporter_Check(t *testing.T) {
	pinger := &fakePinger{}
	reporter := NewHealthReporter(pinger, time.Minute)
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, reporter.Check(ctx))
	resp, err := reporter.server.Check(ctx, &healthpb.HealthCheckRequest{Service: BookingServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	pinger.err = errors.New("connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, reporter.Check(ctx))
	resp, err = reporter.server.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestNewServer_HealthIsPublic(t *testing.T) {
	reporter := NewHealthReporter(&fakePinger{}, time.Minute)
	reporter.Check(context.Background())

	lis := bufconn.Listen(1 << 20)
	s := NewServer(reporter, security.NewTokenManager("0123456789abcdef0123456789abcdef"))
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: BookingServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

const pingMethod = "/gearshare.Internal/Ping"

// pingServiceDesc stands in for a service added to the server after health and reflection.
var pingServiceDesc = grpc.ServiceDesc{
	ServiceName: "gearshare.Internal",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Ping",
		Handler: func(srv any, ctx context.Context, dec func(any) error, unary grpc.UnaryServerInterceptor) (any, error) {
			in := new(healthpb.HealthCheckRequest)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				if _, err := interceptor.UserIDFromContext(ctx); err != nil {
					return nil, err
				}
				return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
			}
			return unary(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: pingMethod}, handler)
		},
	}},
}

func TestNewServer_UnlistedMethodRequiresToken(t *testing.T) {
	tm := security.NewTokenManager("0123456789abcdef0123456789abcdef")
	reporter := NewHealthReporter(&fakePinger{}, time.Minute)
	reporter.Check(context.Background())

	lis := bufconn.Listen(1 << 20)
	s := NewServer(reporter, tm)
	s.RegisterService(&pingServiceDesc, struct{}{})
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	// Health stays reachable without credentials.
	_, err = healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	out := new(healthpb.HealthCheckResponse)
	err = conn.Invoke(context.Background(), pingMethod, &healthpb.HealthCheckRequest{}, out)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := tm.GenerateAccessToken("user-7", "")
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
	err = conn.Invoke(ctx, pingMethod, &healthpb.HealthCheckRequest{}, out)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, out.Status)
}
