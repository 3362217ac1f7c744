package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account holds the two transaction counters the node reports for an address.
type Account struct {
	Address      common.Address
	LatestNonce  uint64 // confirmed
	PendingNonce uint64 // including unconfirmed
}

// NonceGapReport describes the stuck transactions of an account.
type NonceGapReport struct {
	Account     Account
	GapCount    uint64
	StuckNonces []uint64
	// Clamped is set when the pending read came back lower than the latest read.
	Clamped   bool
	CheckedAt time.Time
}

// NewNonceGapReport builds a report from two counter reads.
// A pending read below the latest read is treated as stale and clamped.
func NewNonceGapReport(addr common.Address, latest, pending uint64) *NonceGapReport {
	report := &NonceGapReport{
		Account: Account{
			Address:      addr,
			LatestNonce:  latest,
			PendingNonce: pending,
		},
		StuckNonces: []uint64{},
		CheckedAt:   time.Now(),
	}

	if pending < latest {
		report.Account.PendingNonce = latest
		report.Clamped = true
		return report
	}

	report.GapCount = pending - latest
	for n := latest; n < pending; n++ {
		report.StuckNonces = append(report.StuckNonces, n)
	}
	return report
}

// IsClean reports whether there is nothing to replace.
func (r *NonceGapReport) IsClean() bool {
	return r.GapCount == 0
}
