package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var backfillInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve archive lookups, optionally backfilling on an interval",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&backfillInterval, "backfill-interval", 0, "run a backfill pass every interval (0 uses backfill.interval)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	if backfillInterval > 0 {
		cfg.Backfill.Interval = backfillInterval
	}

	ctx, cancel := signalContext()
	defer cancel()

	app := newApp(ctx, cfg)
	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start archiver", "error", err)
		os.Exit(1)
	}
	slog.Info("Archiver started", "config", cfgPath, "port", cfg.Server.Port)

	<-ctx.Done()
	slog.Info("Received signal, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Archiver stopped gracefully")
}
