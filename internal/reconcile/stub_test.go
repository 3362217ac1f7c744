package reconcile

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
	"github.com/vietddude/unstuck/internal/infra/rpc"
)

var testAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// stubNode is an in-memory ledger for one account. A submitted nonce confirms
// when its receipt is awaited, and only if every lower nonce already confirmed.
type stubNode struct {
	mu sync.Mutex

	latest   uint64
	pending  uint64
	chainID  uint64
	gasPrice *big.Int
	balance  *big.Int

	gasPriceErr error
	balanceErr  error
	chainIDErr  error
	// countErr fails every counter read when set.
	countErr error
	// beforeSend runs before a submission is accepted; a non-nil error rejects it.
	beforeSend func(n *stubNode, nonce uint64) error
	// waitErr fails the receipt wait for the given nonce.
	waitErr map[uint64]error
	// minedOriginal confirms the original transaction at the nonce while its
	// replacement is awaited.
	minedOriginal map[uint64]bool

	inFlight    int
	maxInFlight int
	sent        []uint64
	byHash      map[string]uint64
	countCalls  int
	gasCalls    int
	chainCalls  int
}

func newStubNode(latest, pending uint64) *stubNode {
	return &stubNode{
		latest:   latest,
		pending:  pending,
		chainID:  31337,
		gasPrice: big.NewInt(20),
		balance:  big.NewInt(1_000_000_000),
		byHash:   map[string]uint64{},
		waitErr:  map[uint64]error{},

		minedOriginal: map[uint64]bool{},
	}
}

func (n *stubNode) ChainID(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chainCalls++
	if n.chainIDErr != nil {
		return 0, n.chainIDErr
	}
	return n.chainID, nil
}

func (n *stubNode) TransactionCount(ctx context.Context, addr common.Address, tag chain.BlockTag) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countCalls++
	if n.countErr != nil {
		return 0, n.countErr
	}
	if tag == chain.BlockPending {
		return n.pending, nil
	}
	return n.latest, nil
}

func (n *stubNode) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if n.balanceErr != nil {
		return nil, n.balanceErr
	}
	return new(big.Int).Set(n.balance), nil
}

func (n *stubNode) GasPrice(ctx context.Context) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gasCalls++
	if n.gasPriceErr != nil {
		return nil, n.gasPriceErr
	}
	return new(big.Int).Set(n.gasPrice), nil
}

func (n *stubNode) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	nonce := binary.BigEndian.Uint64(raw)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, nonce)
	if n.beforeSend != nil {
		if err := n.beforeSend(n, nonce); err != nil {
			return "", err
		}
	}

	n.inFlight++
	if n.inFlight > n.maxInFlight {
		n.maxInFlight = n.inFlight
	}
	hash := fmt.Sprintf("0x%064x", nonce)
	n.byHash[hash] = nonce
	return hash, nil
}

func (n *stubNode) WaitForReceipt(
	ctx context.Context,
	from common.Address,
	nonce uint64,
	txHash string,
) (*domain.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inFlight--

	if sent, ok := n.byHash[txHash]; !ok || sent != nonce {
		return nil, errors.New("unknown transaction")
	}
	if err := n.waitErr[nonce]; err != nil {
		return nil, err
	}
	if n.minedOriginal[nonce] && nonce == n.latest {
		n.latest = nonce + 1
		return nil, fmt.Errorf("%w: nonce %d, latest %d", domain.ErrNonceConsumed, nonce, n.latest)
	}
	if nonce != n.latest {
		return nil, fmt.Errorf("nonce %d cannot confirm before %d", nonce, n.latest)
	}
	n.latest = nonce + 1
	if n.pending < n.latest {
		n.pending = n.latest
	}
	return &domain.Receipt{TxHash: txHash, BlockNumber: 100 + nonce, Status: 1}, nil
}

// stubSigner encodes the nonce as the raw transaction so the node can read it back.
type stubSigner struct {
	addr     common.Address
	err      error
	requests []chain.TxRequest
}

func (s *stubSigner) Address() common.Address { return s.addr }

func (s *stubSigner) Sign(ctx context.Context, req chain.TxRequest) ([]byte, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return binary.BigEndian.AppendUint64(nil, req.Nonce), nil
}

func alreadyKnown() error {
	return &rpc.RPCError{Code: -32000, Message: "already known"}
}
