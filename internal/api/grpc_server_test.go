package api

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"tourbook/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func startBufconnServer(t *testing.T, limiter *mockLimiter) (*GRPCServer, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	logger := zerolog.Nop()
	var rl domain.RateLimiter
	if limiter != nil {
		rl = limiter
	}
	s := newGRPCServer(lis, rl, &logger)
	go func() { _ = s.Serve() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s, healthpb.NewHealthClient(conn)
}

func TestGRPCHealth(t *testing.T) {
	s, client := startBufconnServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	s.SetServing(true)

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown.Service"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCRequestIDHeader(t *testing.T) {
	_, client := startBufconnServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var header metadata.MD
	outCtx := metadata.AppendToOutgoingContext(ctx, requestIDMetadataKey, "req-42")
	_, err := client.Check(outCtx, &healthpb.HealthCheckRequest{}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(requestIDMetadataKey))

	header = nil
	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{}, grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(requestIDMetadataKey), 1)
	assert.NotEmpty(t, header.Get(requestIDMetadataKey)[0])
}

func TestGRPCRateLimit(t *testing.T) {
	limiter := new(mockLimiter)
	limiter.On("Allow", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "grpc:")
	})).Return(false, nil)

	_, client := startBufconnServer(t, limiter)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	limiter.AssertExpectations(t)
}

func TestRateLimitInterceptorFailsOpen(t *testing.T) {
	limiter := new(mockLimiter)
	limiter.On("Allow", mock.Anything, "grpc:"+clientKeyUnknown).Return(false, errors.New("redis down"))

	interceptor := RateLimitUnaryInterceptor(limiter)
	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, req any) (any, error) { return "ok", nil })

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	limiter.AssertExpectations(t)
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryUnaryInterceptor(zerolog.Nop())
	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, req any) (any, error) { panic("boom") })

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}
