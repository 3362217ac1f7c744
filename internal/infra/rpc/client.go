package rpc

import (
	"context"

	"github.com/vietddude/unstuck/internal/infra/rpc/provider"
	"github.com/vietddude/unstuck/internal/infra/rpc/routing"
)

// RPCClient is what chain clients depend on.
type RPCClient interface {
	// Call performs an idempotent call, retrying transient failures.
	Call(ctx context.Context, method string, params []any) (any, error)

	// CallOnce performs a call exactly once.
	CallOnce(ctx context.Context, method string, params []any) (any, error)
}

// Client is the high-level interface for making RPC calls against one provider.
type Client struct {
	provider provider.Provider
	retry    routing.RetryConfig
}

// NewClient creates a new RPC client.
func NewClient(p provider.Provider, retry routing.RetryConfig) *Client {
	return &Client{
		provider: p,
		retry:    retry,
	}
}

// Call makes an RPC call with retry.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	return routing.CallWithRetry(ctx, c.provider, method, params, c.retry)
}

// CallOnce makes an RPC call without retry.
func (c *Client) CallOnce(ctx context.Context, method string, params []any) (any, error) {
	return c.provider.Call(ctx, method, params)
}

// Health returns the provider's health status.
func (c *Client) Health() provider.HealthStatus {
	return c.provider.GetHealth()
}

// Close releases the provider's connections.
func (c *Client) Close() error {
	return c.provider.Close()
}
