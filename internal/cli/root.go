package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/metrics"
	redisclient "github.com/vietddude/unstuck/internal/infra/redis"
	"github.com/vietddude/unstuck/internal/infra/storage"
	"github.com/vietddude/unstuck/internal/infra/storage/postgres"
	"github.com/vietddude/unstuck/internal/reconcile"
	"github.com/vietddude/unstuck/internal/report"
)

var (
	cfgPath      string
	isDebug      bool
	dryRun       bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "unstuck",
	Short: "Replace stuck transactions of an account",
	Long: `unstuck compares the confirmed and pending nonce of the configured account
and, when they differ, sends a zero-value self-transfer at an escalated fee for
every stuck nonce, lowest first.`,
	Args: cobra.NoArgs,
	Run:  runReconcile,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (optional, RPC_URL and PRIVATE_KEY are used without it)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "detect and estimate only, send nothing")
	rootCmd.Flags().StringVar(&outputFormat, "format", string(report.FormatText), "report format: text or jsonl")
}

func runReconcile(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := reconcileMain(ctx, cmd, os.Stdout)
	stop()
	os.Exit(code)
}

// reconcileMain runs one reconciliation and returns the exit code:
// 0 when the run completed, whatever the per-nonce outcome, 1 otherwise.
func reconcileMain(ctx context.Context, cmd *cobra.Command, out io.Writer) int {
	a, err := newApp(cmd)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	reporter, err := report.New(report.Format(outputFormat), out)
	if err != nil {
		slog.Error("Invalid report format", "error", &domain.ConfigurationError{Field: "format", Reason: err.Error()})
		return 1
	}

	rcfg, err := a.reconcileConfig(dryRun)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	if a.cfg.Redis.URL != "" {
		release, err := a.lockAccount(ctx, &rcfg)
		if err != nil {
			slog.Error("Failed to lock account", "error", err)
			return 1
		}
		defer release()
	}

	result, runErr := reconcile.NewReconciler(a.node, a.signer, rcfg).Run(ctx)
	if result != nil {
		if err := reporter.Report(result); err != nil {
			slog.Error("Failed to write report", "error", err)
		}
		a.audit(result)
		if err := metrics.Push(a.cfg.Metrics, result.RunID); err != nil {
			slog.Warn("Failed to push metrics", "error", err)
		}
	}

	if runErr != nil {
		switch {
		case errors.Is(runErr, context.Canceled):
			slog.Error("Reconciliation interrupted", "error", runErr)
		case domain.IsFatal(runErr):
			slog.Error("Reconciliation aborted", "error", runErr)
		default:
			slog.Error("Reconciliation failed", "error", runErr)
		}
		return 1
	}
	return 0
}

// lockAccount takes the Redis advisory lock and pins the chain ID used for
// signing to the one the lock was taken for.
func (a *app) lockAccount(ctx context.Context, rcfg *reconcile.Config) (func(), error) {
	chainID, err := a.chainID(ctx)
	if err != nil {
		return nil, err
	}
	rcfg.ChainID = chainID

	rc, err := redisclient.NewClient(a.cfg.Redis)
	if err != nil {
		return nil, err
	}

	lock, err := rc.AcquireLock(ctx, chainID, a.signer.Address(), a.cfg.Redis.LockTTL)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	slog.Debug("Account lock acquired", "key", lock.Key())

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			slog.Warn("Failed to release account lock", "key", lock.Key(), "error", err)
		}
		_ = rc.Close()
	}, nil
}

// audit stores the run in the audit database, or in process memory when none
// is configured. Failures are logged only.
func (a *app) audit(result *domain.RunResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.cfg.Database.URL == "" {
		if err := saveRun(ctx, a.runs, result); err == nil {
			slog.Debug("No audit database configured, run kept in memory",
				"run_id", result.RunID,
				"attempts", len(a.runs.Attempts(result.RunID)),
			)
		}
		return
	}

	db, err := postgres.NewDB(ctx, a.cfg.Database)
	if err != nil {
		slog.Warn("Failed to connect to audit database", "error", err)
		return
	}
	defer func() {
		_ = db.Close()
	}()

	_ = saveRun(ctx, postgres.NewRunRepo(db), result)
}

func saveRun(ctx context.Context, repo storage.RunRepository, result *domain.RunResult) error {
	if err := repo.Save(ctx, result); err != nil {
		slog.Warn("Failed to save run", "run_id", result.RunID, "error", err)
		return err
	}
	slog.Debug("Run saved", "run_id", result.RunID)
	return nil
}
