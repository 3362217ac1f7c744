package domain

import "math/big"

type FeeSource string

const (
	FeeSourceNode     FeeSource = "node"
	FeeSourceFallback FeeSource = "fallback"
)

// GasQuote is the fee used for every replacement in a run. Values are in wei.
type GasQuote struct {
	BaseFee        *big.Int
	ReplacementFee *big.Int
	Source         FeeSource
}

// Receipt is the first inclusion of a transaction in a block.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	// Status is 1 for success and 0 for a reverted transaction.
	Status uint64
}
