package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/weavearchive/internal/control"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	if cfg.Database.URL == "" {
		slog.Error("database.url is required")
		os.Exit(1)
	}

	ctx := context.Background()
	code := runApp(ctx, cfg, "Migration", func(app *control.App) error {
		if err := app.Migrate(ctx); err != nil {
			return err
		}
		slog.Info("Migrations applied")
		return nil
	})
	if code != 0 {
		os.Exit(code)
	}
}
