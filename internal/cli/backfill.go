package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/weavearchive/internal/control"
	"github.com/vietddude/weavearchive/internal/indexing/backfill"
)

var (
	maxPages  uint32
	maxBlocks int
	dryRun    bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run one backfill pass and exit",
	Run:   runBackfill,
}

func init() {
	backfillCmd.Flags().Uint32Var(&maxPages, "max-pages", 0, "archive index page limit per identity (0 uses archive.max_pages)")
	backfillCmd.Flags().IntVar(&maxBlocks, "max-blocks", 0, "upload at most this many blocks (0 uses backfill.max_blocks)")
	backfillCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scan and report missing blocks without uploading")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	if maxPages > 0 {
		cfg.Archive.MaxPages = maxPages
	}
	if maxBlocks > 0 {
		cfg.Backfill.MaxBlocks = maxBlocks
	}
	if dryRun {
		cfg.Backfill.DryRun = true
	}

	ctx, cancel := signalContext()
	code := runApp(ctx, cfg, "Backfill", func(app *control.App) error {
		return backfillPass(ctx, app, os.Stdout)
	})
	cancel()
	if code != 0 {
		os.Exit(code)
	}
}

func backfillPass(ctx context.Context, app *control.App, out io.Writer) error {
	report, err := app.Backfill(ctx)
	if report != nil {
		printReport(out, report)
	}
	return err
}

func printReport(out io.Writer, report *backfill.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "RUN\t%s\n", report.RunID)
	_, _ = fmt.Fprintf(w, "LATEST\t%d\n", report.LatestHeight)
	_, _ = fmt.Fprintf(w, "ARCHIVED\t%d\n", report.Archived)
	_, _ = fmt.Fprintf(w, "MISSING\t%d (%d ranges)\n", report.Missing, len(report.MissingRanges))
	_, _ = fmt.Fprintf(w, "UPLOADED\t%d\n", report.Uploaded)
	_, _ = fmt.Fprintf(w, "PERSIST FAILED\t%d\n", report.PersistFailed)
	_, _ = fmt.Fprintf(w, "SKIPPED\t%d\n", report.Skipped)
	if report.DryRun {
		for _, g := range report.MissingRanges {
			_, _ = fmt.Fprintf(w, "GAP\t%d-%d\n", g.FromBlock, g.ToBlock)
		}
	}
	_ = w.Flush()
}
