package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/interview-coach/internal/resilience"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "interview"

// Health serves the standard gRPC health protocol. The interview service is
// NOT_SERVING while the Session API breaker is open.
type Health struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewHealth creates a gRPC server with trace interceptors and the health
// service registered.
func NewHealth() *Health {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(trace.StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return &Health{grpc: srv, health: hs}
}

// GRPC returns the underlying server for Serve.
func (h *Health) GRPC() *grpc.Server { return h.grpc }

// SetServing updates the interview service status.
func (h *Health) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(HealthService, status)
}

// Watch polls state until ctx is done and mirrors it into the health status.
func (h *Health) Watch(ctx context.Context, interval time.Duration, state func() resilience.State) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last resilience.State
	seen := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if st := state(); !seen || st != last {
				h.SetServing(st != resilience.Open)
				last, seen = st, true
			}
		}
	}
}

// Stop marks everything NOT_SERVING and stops the server gracefully.
func (h *Health) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
