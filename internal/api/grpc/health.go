package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"gearshare-backend/internal/api/grpc/interceptor"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/security"
)

// BookingServiceName is the health check key for the booking API
const BookingServiceName = "gearshare.booking"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthReporter keeps the gRPC health status in line with database reachability.
type HealthReporter struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
}

func NewHealthReporter(pinger Pinger, interval time.Duration) *HealthReporter {
	return &HealthReporter{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		timeout:  2 * time.Second,
	}
}

// Check pings the store once and publishes the result for the overall server and
// the booking service.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.PingContext(pingCtx); err != nil {
		logger.Warn("Database ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", st)
	h.server.SetServingStatus(BookingServiceName, st)
	return st
}

// Run checks on every tick until ctx is done, then marks the server as shutting down.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds the gRPC server that exposes health and reflection. Every method it
// serves is public in config.EndpointSecurityConfig, so the auth interceptor only guards
// services registered on the returned server later: an unlisted method requires an access
// token until it is added to the config.
func NewServer(reporter *HealthReporter, tm security.TokenManager) *grpc.Server {
	auth := interceptor.NewAuthInterceptor(tm)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(auth.Unary()),
		grpc.StreamInterceptor(auth.Stream()),
	)
	healthpb.RegisterHealthServer(s, reporter.server)

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}
