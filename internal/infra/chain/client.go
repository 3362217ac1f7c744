package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/unstuck/internal/core/domain"
)

// BlockTag selects which view of the account state a read uses.
type BlockTag string

const (
	BlockLatest  BlockTag = "latest"
	BlockPending BlockTag = "pending"
)

// Client defines the ledger node operations the reconciliation needs.
// This is the boundary between the reconcile logic and a concrete node.
type Client interface {
	// ChainID returns the chain identifier used for replay-protected signing
	ChainID(ctx context.Context) (uint64, error)

	// TransactionCount returns the account's nonce counter at the given view
	TransactionCount(ctx context.Context, addr common.Address, tag BlockTag) (uint64, error)

	// Balance returns the account balance at the latest block
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)

	// GasPrice returns the node's current fee estimate.
	// Returns domain.ErrFeeUnavailable when the node has no usable estimate.
	GasPrice(ctx context.Context) (*big.Int, error)

	// SendRawTransaction submits a signed transaction and returns its hash
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)

	// WaitForReceipt blocks until the transaction has one confirmation
	// or until another transaction from the same account is mined at nonce.
	WaitForReceipt(ctx context.Context, from common.Address, nonce uint64, txHash string) (*domain.Receipt, error)
}

// TxRequest is an unsigned transaction.
type TxRequest struct {
	ChainID  *big.Int
	From     common.Address
	To       common.Address
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// Signer turns a transaction request into signed wire bytes.
// Key material stays behind this interface.
type Signer interface {
	Address() common.Address
	Sign(ctx context.Context, req TxRequest) ([]byte, error)
}
