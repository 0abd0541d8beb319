// Package grpcclient probes a running interviewd over the gRPC health
// protocol.
package grpcclient

import "time"

const (
	// Keepalive pings for long waits on a quiet connection.
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// DefaultHealthCheckInterval is the WaitServing poll period. The server
	// also mirrors its breaker into the health status at this rate.
	DefaultHealthCheckInterval = 5 * time.Second
	// HealthCheckTimeout bounds a single Check.
	HealthCheckTimeout = 2 * time.Second
)
