package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Client checks the health of an interviewd gRPC endpoint.
type Client struct {
	conn     *grpc.ClientConn
	health   healthpb.HealthClient
	interval time.Duration
}

// New creates a client for addr. No connection is made until the first call.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithUnaryInterceptor(traceInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.Network, "connect to %s", addr)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn), interval: DefaultHealthCheckInterval}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Check returns the serving status of service.
func (c *Client) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, apperrors.FromGRPCError(err)
	}
	return resp.GetStatus(), nil
}

// WaitServing polls until service reports SERVING or ctx is done.
func (c *Client) WaitServing(ctx context.Context, service string) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		status, err := c.Check(ctx, service)
		if err == nil && status == healthpb.HealthCheckResponse_SERVING {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return err
			}
			return apperrors.Wrapf(ctx.Err(), apperrors.Network, "%s is %s", service, status)
		case <-ticker.C:
		}
	}
}

// traceInterceptor forwards trace and session ids as outgoing metadata.
func traceInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx, _ = trace.EnsureContext(ctx)
	if tc, ok := trace.FromContext(ctx); ok {
		for k, v := range tc.Headers() {
			ctx = metadata.AppendToOutgoingContext(ctx, k, v)
		}
	}
	if id := trace.SessionID(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, trace.SessionIDKey, id)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}
