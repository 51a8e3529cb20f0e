package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/weavearchive/internal/control"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Store archive records for uploaded blocks that failed to persist",
	Run:   runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)

	ctx, cancel := signalContext()
	code := runApp(ctx, cfg, "Reconcile", func(app *control.App) error {
		report, err := app.Reconcile(ctx)
		if err != nil {
			return err
		}
		slog.Info("Reconcile complete", "pending", report.Pending, "stored", report.Stored, "failed", report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d records still unindexed", report.Failed)
		}
		return nil
	})
	cancel()
	if code != 0 {
		os.Exit(code)
	}
}
