package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/weavearchive/internal/control"
	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/infra/storage"
)

var errBlockNotFound = errors.New("block not found")

var (
	lookupNumber int64
	lookupHash   string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Show the archive record for a block",
	Run:   runLookup,
}

func init() {
	lookupCmd.Flags().Int64Var(&lookupNumber, "number", -1, "block number")
	lookupCmd.Flags().StringVar(&lookupHash, "hash", "", "block hash, with or without 0x")
	lookupCmd.MarkFlagsMutuallyExclusive("number", "hash")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) {
	if lookupNumber < 0 && lookupHash == "" {
		_ = cmd.Usage()
		os.Exit(2)
	}
	cfg := setup(cmd)

	ctx := context.Background()
	code := runApp(ctx, cfg, "Lookup", func(app *control.App) error {
		return lookup(ctx, app.Store(), os.Stdout, lookupNumber, lookupHash)
	})
	if code != 0 {
		os.Exit(code)
	}
}

// lookup prints the record for hash, or for number when hash is empty.
func lookup(ctx context.Context, store storage.ArchiveRepository, out io.Writer, number int64, hash string) error {
	var (
		rec *domain.ArchiveRecord
		err error
	)
	if hash != "" {
		rec, err = store.GetByHash(ctx, hash)
	} else {
		rec, err = store.GetByNumber(ctx, uint64(number))
	}
	if err != nil {
		return err
	}
	if rec == nil {
		return errBlockNotFound
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BLOCK\tHASH\tARCHIVE ID")
	_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", rec.BlockNumber, rec.BlockHash, rec.ArchiveID)
	return w.Flush()
}
