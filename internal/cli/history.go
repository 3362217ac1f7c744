package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/storage"
	"github.com/vietddude/unstuck/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent reconciliation runs from the audit database",
	Args:  cobra.NoArgs,
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	if cfg.Database.URL == "" {
		slog.Error("No audit database", "error", &domain.ConfigurationError{Field: "database.url", Reason: "missing"})
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		cancel()
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := writeHistory(ctx, os.Stdout, postgres.NewRunRepo(db), historyLimit); err != nil {
		slog.Error("Failed to list runs", "error", err)
		_ = db.Close()
		cancel()
		os.Exit(1)
	}
}

func writeHistory(ctx context.Context, out io.Writer, repo storage.RunRepository, limit int) error {
	runs, err := repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RUN\tSTARTED\tCHAIN\tADDRESS\tGAP\tCONFIRMED\tFAILED\tRESIDUAL\tDRY RUN")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%t\n",
			r.RunID,
			r.StartedAt.Format(time.RFC3339),
			r.ChainID,
			r.Address,
			r.GapBefore,
			r.Confirmed,
			r.Failed,
			r.ResidualGap,
			r.DryRun,
		)
	}
	return w.Flush()
}
