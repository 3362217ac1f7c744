package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
	"github.com/vietddude/unstuck/internal/infra/rpc"
)

// DefaultPollInterval is how often a pending receipt is re-queried.
const DefaultPollInterval = 2 * time.Second

// Client implements chain.Client over Ethereum JSON-RPC.
type Client struct {
	client       rpc.RPCClient
	pollInterval time.Duration
	log          *logger.Logger
}

var _ chain.Client = (*Client)(nil)

func NewClient(client rpc.RPCClient, pollInterval time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Client{
		client:       client,
		pollInterval: pollInterval,
		log:          logger.Default().With("component", "evm-client"),
	}
}

func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	result, err := c.client.Call(ctx, "eth_chainId", nil)
	if err != nil {
		return 0, domain.NewNetworkError("eth_chainId", err)
	}
	id, err := parseHexString(getString(result))
	if err != nil {
		return 0, domain.NewNetworkError("eth_chainId", err)
	}
	return id.Uint64(), nil
}

func (c *Client) TransactionCount(
	ctx context.Context,
	addr common.Address,
	tag chain.BlockTag,
) (uint64, error) {
	op := fmt.Sprintf("eth_getTransactionCount(%s)", tag)
	result, err := c.client.Call(ctx, "eth_getTransactionCount", []any{addr.Hex(), string(tag)})
	if err != nil {
		return 0, domain.NewNetworkError(op, err)
	}
	n, err := parseHexString(getString(result))
	if err != nil {
		return 0, domain.NewNetworkError(op, err)
	}
	if !n.IsUint64() {
		return 0, domain.NewNetworkError(op, fmt.Errorf("nonce out of range: %s", n))
	}
	return n.Uint64(), nil
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	result, err := c.client.Call(ctx, "eth_getBalance", []any{addr.Hex(), string(chain.BlockLatest)})
	if err != nil {
		return nil, domain.NewNetworkError("eth_getBalance", err)
	}
	balance, err := parseHexString(getString(result))
	if err != nil {
		return nil, domain.NewNetworkError("eth_getBalance", err)
	}
	return balance, nil
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.client.Call(ctx, "eth_gasPrice", nil)
	if err != nil {
		var rpcErr *rpc.RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %v", domain.ErrFeeUnavailable, err)
		}
		return nil, domain.NewNetworkError("eth_gasPrice", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty result", domain.ErrFeeUnavailable)
	}
	price, err := parseHexString(getString(result))
	if err != nil {
		return nil, domain.NewNetworkError("eth_gasPrice", err)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: node returned %s", domain.ErrFeeUnavailable, price)
	}
	return price, nil
}

// SendRawTransaction submits exactly once. Errors from the node come back as *rpc.RPCError.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	result, err := c.client.CallOnce(ctx, "eth_sendRawTransaction", []any{hexutil.Encode(raw)})
	if err != nil {
		var rpcErr *rpc.RPCError
		if errors.As(err, &rpcErr) {
			return "", err
		}
		return "", domain.NewNetworkError("eth_sendRawTransaction", err)
	}
	hash := getString(result)
	if hash == "" {
		return "", domain.NewNetworkError("eth_sendRawTransaction", fmt.Errorf("invalid hash response"))
	}
	return strings.ToLower(hash), nil
}

// WaitForReceipt polls until the node reports a receipt with a block number.
// Each empty poll also reads the latest nonce of from: once it has moved past
// nonce without a receipt for txHash, the slot went to another transaction and
// the wait ends with ErrNonceConsumed.
func (c *Client) WaitForReceipt(ctx context.Context, from common.Address, nonce uint64, txHash string) (*domain.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.getReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		latest, err := c.TransactionCount(ctx, from, chain.BlockLatest)
		if err != nil {
			return nil, err
		}
		if latest > nonce {
			// Ours may have been mined between the two reads.
			receipt, err := c.getReceipt(ctx, txHash)
			if err != nil {
				return nil, err
			}
			if receipt != nil {
				return receipt, nil
			}
			return nil, fmt.Errorf("%w: nonce %d, latest %d", domain.ErrNonceConsumed, nonce, latest)
		}

		c.log.Debug("Receipt not yet available", "tx", txHash, "nonce", nonce)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	result, err := c.client.Call(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, domain.NewNetworkError("eth_getTransactionReceipt", err)
	}
	if result == nil {
		return nil, nil
	}

	raw, ok := result.(map[string]any)
	if !ok {
		return nil, domain.NewNetworkError("eth_getTransactionReceipt", fmt.Errorf("invalid receipt format"))
	}

	blockHex := getString(raw["blockNumber"])
	if blockHex == "" {
		return nil, nil // Known but not yet included
	}
	blockNumber, err := parseHexString(blockHex)
	if err != nil {
		return nil, domain.NewNetworkError("eth_getTransactionReceipt", err)
	}

	var status uint64 = 1
	if st := getString(raw["status"]); st != "" {
		parsed, err := parseHexString(st)
		if err != nil {
			return nil, domain.NewNetworkError("eth_getTransactionReceipt", err)
		}
		status = parsed.Uint64()
	}

	return &domain.Receipt{
		TxHash:      txHash,
		BlockNumber: blockNumber.Uint64(),
		Status:      status,
	}, nil
}

// parseHexString accepts leading zeros, which some nodes emit and hexutil rejects.
func parseHexString(hexStr string) (*big.Int, error) {
	if !strings.HasPrefix(hexStr, "0x") && !strings.HasPrefix(hexStr, "0X") {
		return nil, fmt.Errorf("invalid hex: %q", hexStr)
	}
	digits := hexStr[2:]
	if digits == "" {
		return nil, fmt.Errorf("invalid hex: %q", hexStr)
	}
	n := new(big.Int)
	if _, ok := n.SetString(digits, 16); !ok {
		return nil, fmt.Errorf("invalid hex: %q", hexStr)
	}
	return n, nil
}

func getString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
