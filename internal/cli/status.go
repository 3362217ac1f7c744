package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
	"github.com/vietddude/unstuck/internal/infra/rpc"
	"github.com/vietddude/unstuck/internal/reconcile"
	"golang.org/x/sync/errgroup"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the nonce gap and balance of the account without sending anything",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*a.cfg.Node.Timeout)
	defer cancel()

	st, err := readStatus(ctx, a.node, a.signer.Address())
	if err != nil {
		slog.Error("Failed to read account status", "error", err)
		a.Close()
		cancel()
		os.Exit(1)
	}
	st.Node = a.cfg.Node.Name
	st.Health = a.rpc.Health()
	a.Close()

	writeStatus(os.Stdout, st)
}

type accountStatus struct {
	Report  *domain.NonceGapReport
	Balance *big.Int
	Node    string
	Health  rpc.HealthStatus
}

// readStatus reads the gap and the balance concurrently. Only the gap read is
// required; a failed balance read leaves Balance nil.
func readStatus(ctx context.Context, client chain.Client, addr common.Address) (*accountStatus, error) {
	var st accountStatus
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		report, err := reconcile.NewDetector(client).Detect(gctx, addr)
		if err != nil {
			return err
		}
		st.Report = report
		return nil
	})

	g.Go(func() error {
		balance, err := client.Balance(gctx, addr)
		if err != nil {
			slog.Warn("Failed to read balance", "error", err)
			return nil
		}
		st.Balance = balance
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

func writeStatus(out io.Writer, st *accountStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ADDRESS\tLATEST\tPENDING\tGAP\tBALANCE\tCHECKED")

	balance := "-"
	if st.Balance != nil {
		balance = st.Balance.String()
	}
	r := st.Report
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
		r.Account.Address.Hex(),
		r.Account.LatestNonce,
		r.Account.PendingNonce,
		r.GapCount,
		balance,
		r.CheckedAt.Format(time.RFC3339),
	)
	_ = w.Flush()

	if st.Node == "" {
		return
	}
	_, _ = fmt.Fprintf(out, "\nNode %s: %s (avg latency %s, error rate %.0f%%)\n",
		st.Node,
		nodeState(st.Health),
		st.Health.Latency.Round(time.Millisecond),
		st.Health.ErrorRate*100,
	)
}

func nodeState(h rpc.HealthStatus) string {
	switch {
	case !h.Available:
		return "critical"
	case h.ErrorRate > 0:
		return "degraded"
	default:
		return "healthy"
	}
}
