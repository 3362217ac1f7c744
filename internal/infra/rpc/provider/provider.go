// Package provider implements RPC provider interfaces.
//
// This package contains:
//   - Provider interface: core abstraction for a JSON-RPC endpoint
//   - HTTPProvider: JSON-RPC 2.0 over HTTP implementation
//   - RPCError: a JSON-RPC error object returned by the node
package provider

import (
	"context"
	"time"
)

// Provider defines the interface for a JSON-RPC endpoint.
type Provider interface {
	// GetName returns provider identifier (e.g., "alchemy", "local")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Call makes a single RPC request
	Call(ctx context.Context, method string, params []any) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
}
