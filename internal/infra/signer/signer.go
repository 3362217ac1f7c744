// Package signer holds the private key and signs replacement transactions.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vietddude/unstuck/internal/infra/chain"
)

// KeySigner signs legacy transactions with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ chain.Signer = (*KeySigner)(nil)

// NewKeySigner parses a hex private key, with or without the 0x prefix.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

// Sign returns the binary encoding accepted by eth_sendRawTransaction.
func (s *KeySigner) Sign(_ context.Context, req chain.TxRequest) ([]byte, error) {
	if req.ChainID == nil {
		return nil, fmt.Errorf("chain id is required")
	}
	if req.From != s.address {
		return nil, fmt.Errorf("signer %s cannot sign for %s", s.address.Hex(), req.From.Hex())
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    req.Nonce,
		GasPrice: req.GasPrice,
		Gas:      req.GasLimit,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(req.ChainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode tx: %w", err)
	}
	return raw, nil
}
