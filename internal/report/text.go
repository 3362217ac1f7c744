package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vietddude/unstuck/internal/core/domain"
)

// TextReporter prints a human-readable summary.
type TextReporter struct {
	w io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Report(result *domain.RunResult) error {
	if result == nil || result.Before == nil {
		return fmt.Errorf("nothing to report")
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	before := result.Before

	_, _ = fmt.Fprintf(w, "Run:\t%s\n", result.RunID)
	_, _ = fmt.Fprintf(w, "Account:\t%s\n", before.Account.Address.Hex())
	if result.ChainID != 0 {
		_, _ = fmt.Fprintf(w, "Chain:\t%d\n", result.ChainID)
	}
	_, _ = fmt.Fprintf(w, "Before:\t%s\n", counters(before))

	if before.IsClean() {
		_, _ = fmt.Fprintf(w, "Result:\tno stuck transactions\n")
		return w.Flush()
	}

	_, _ = fmt.Fprintf(w, "Stuck nonces:\t%s\n", nonceRange(before.StuckNonces))
	if result.Balance != nil {
		_, _ = fmt.Fprintf(w, "Balance:\t%s wei\n", result.Balance)
	}
	if q := result.Quote; q != nil {
		_, _ = fmt.Fprintf(w, "Fee:\tbase %s wei, replacement %s wei (%s)\n",
			weiString(q.BaseFee), weiString(q.ReplacementFee), q.Source)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if result.DryRun {
		_, err := fmt.Fprintf(r.w, "\nDry run: %d replacement(s) not sent\n", before.GapCount)
		return err
	}

	if len(result.Attempts) > 0 {
		_, _ = fmt.Fprintln(r.w)
		t := tabwriter.NewWriter(r.w, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(t, "NONCE\tSTATUS\tFEE\tTX\tBLOCK\tREASON")
		for _, a := range result.Attempts {
			block := "-"
			if a.BlockNumber != 0 {
				block = fmt.Sprint(a.BlockNumber)
			}
			tx := a.TxHash
			if tx == "" {
				tx = "-"
			}
			_, _ = fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%s\t%s\n",
				a.Nonce, a.Status, weiString(a.Fee), tx, block, a.Reason)
		}
		if err := t.Flush(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(r.w)
	}

	w = tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	if result.After != nil {
		_, _ = fmt.Fprintf(w, "After:\t%s\n", counters(result.After))
	} else {
		_, _ = fmt.Fprintf(w, "After:\tunknown\n")
	}
	_, _ = fmt.Fprintf(w, "Result:\t%d confirmed, %d failed, residual gap %d\n",
		result.CountByStatus(domain.AttemptStatusConfirmed),
		result.CountByStatus(domain.AttemptStatusFailed),
		result.ResidualGap(),
	)
	return w.Flush()
}

func counters(r *domain.NonceGapReport) string {
	return fmt.Sprintf("latest %d, pending %d, gap %d",
		r.Account.LatestNonce, r.Account.PendingNonce, r.GapCount)
}

func nonceRange(nonces []uint64) string {
	switch len(nonces) {
	case 0:
		return "none"
	case 1:
		return fmt.Sprint(nonces[0])
	default:
		return fmt.Sprintf("%d..%d", nonces[0], nonces[len(nonces)-1])
	}
}
