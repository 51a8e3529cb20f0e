// Package backfill finds blocks missing from the archive and uploads them.
//
// # Pass
//
// One pass scans the archive index, diffs it against [0, latest] and walks
// the missing blocks strictly one at a time:
//
//	Idle → Scanning → Diffing → (Retrieving → Encoding → Uploading → Persisting)* → Done
//
// Retrieval, encoding and upload failures abort the pass. A failed index
// write is logged, counted and recorded in the unindexed ledger; the pass
// continues.
//
// # Usage
//
//	runner := backfill.NewRunner(cfg, scanner, chainClient, uploader, repo)
//	report, err := runner.Run(ctx)
//
//	// Periodic passes
//	go runner.Loop(ctx, 10*time.Minute)
package backfill
