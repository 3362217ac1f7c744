// Package rpc provides the JSON-RPC client used to talk to a ledger node.
//
// The package offers:
//   - An HTTP provider speaking JSON-RPC 2.0 with health tracking
//   - Exponential-backoff retries for idempotent reads
//   - A single-shot path for calls that must not be repeated (submissions)
//
// # Quick Start
//
//	p := rpc.NewHTTPProvider("local", "http://localhost:8545", 30*time.Second)
//	client := rpc.NewClient(p, rpc.DefaultRetryConfig)
//	result, err := client.Call(ctx, "eth_chainId", nil)
//
// # Package Structure
//
//   - provider/ - Provider implementations (HTTPProvider, RPCError)
//   - routing/  - Error classification and retry logic
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"time"

	"github.com/vietddude/unstuck/internal/infra/rpc/provider"
	"github.com/vietddude/unstuck/internal/infra/rpc/routing"
)

// Provider is the core interface for RPC endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// RPCError is a JSON-RPC error object returned by the node.
type RPCError = provider.RPCError

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}
