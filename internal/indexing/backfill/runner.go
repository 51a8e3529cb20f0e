package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/weavearchive/internal/codec"
	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/indexing/metrics"
	"github.com/vietddude/weavearchive/internal/infra/chain"
	"github.com/vietddude/weavearchive/internal/infra/chain/evm"
)

// ErrPassInProgress is returned when Run is called while a pass is active.
var ErrPassInProgress = errors.New("backfill pass already in progress")

const (
	recordTimeout  = 10 * time.Second
	releaseTimeout = 5 * time.Second
)

// Scanner lists the block numbers already present in the archive.
type Scanner interface {
	Scan(ctx context.Context, maxPages uint32, identities []string) ([]uint64, error)
}

// Uploader writes a payload to the archive and returns its id.
type Uploader interface {
	Upload(ctx context.Context, payload []byte, tags []domain.Tag) (string, error)
}

// RecordStore persists archive pointers.
type RecordStore interface {
	Save(ctx context.Context, rec *domain.ArchiveRecord) error
}

// Claimer coordinates concurrent passes. Optional.
type Claimer interface {
	ClaimBlock(ctx context.Context, network string, blockNumber uint64, owner string, ttl time.Duration) (bool, error)
	ReleaseBlock(ctx context.Context, network string, blockNumber uint64, owner string) error
	CompleteBlock(ctx context.Context, network string, blockNumber uint64, owner string, ttl time.Duration) error
}

// Ledger keeps uploads whose record could not be stored. Optional.
type Ledger interface {
	Add(ctx context.Context, rec *domain.ArchiveRecord) error
}

// Pacer picks the delay before the next pass from the remaining backlog.
type Pacer interface {
	NextInterval(backlog int64) time.Duration
}

// RetryStrategy schedules an early retry after a failed pass.
type RetryStrategy interface {
	GetDelay(attempt int) time.Duration
	ShouldRetry(err error, attempt int) bool
}

// Config configures a backfill pass.
type Config struct {
	Network       string   // value of the Network tag
	ClientVersion string   // value of the Client-Version tag
	Owners        []string // archive publisher identities to scan
	MaxPages      uint32
	MaxBlocks     int // 0 = unlimited
	DryRun        bool
	ClaimTTL      time.Duration
	CompletedTTL  time.Duration
}

// Report summarises one pass.
type Report struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	LatestHeight  uint64
	Archived      int
	Missing       int
	Uploaded      int
	PersistFailed int
	Skipped       int
	DryRun        bool
	MissingRanges []Gap
}

// Backlog is the number of missing blocks this pass did not archive.
func (r *Report) Backlog() int64 {
	if r.DryRun {
		return 0
	}
	n := r.Missing - r.Uploaded - r.Skipped
	if n < 0 {
		return 0
	}
	return int64(n)
}

// Runner executes backfill passes.
type Runner struct {
	cfg      Config
	scanner  Scanner
	chain    chain.Client
	uploader Uploader
	store    RecordStore
	claimer  Claimer
	ledger   Ledger
	pacer    Pacer
	retry    RetryStrategy
	log      *slog.Logger

	running sync.Mutex
	mu      sync.RWMutex
	state   domain.PassState
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithClaimer enables the per-block claim step.
func WithClaimer(c Claimer) Option {
	return func(r *Runner) { r.claimer = c }
}

// WithLedger records persist failures for later reconciliation.
func WithLedger(l Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithPacer adapts the Loop interval to the backlog left by each pass.
func WithPacer(p Pacer) Option {
	return func(r *Runner) { r.pacer = p }
}

// WithRetryStrategy retries failed passes before the next scheduled one.
func WithRetryStrategy(s RetryStrategy) Option {
	return func(r *Runner) { r.retry = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a new runner.
func NewRunner(
	cfg Config,
	scanner Scanner,
	chainClient chain.Client,
	uploader Uploader,
	store RecordStore,
	opts ...Option,
) *Runner {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 10 * time.Minute
	}
	if cfg.CompletedTTL <= 0 {
		cfg.CompletedTTL = 24 * time.Hour
	}
	r := &Runner{
		cfg:      cfg,
		scanner:  scanner,
		chain:    chainClient,
		uploader: uploader,
		store:    store,
		log:      slog.Default(),
		state:    domain.PassStateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "backfill", "network", cfg.Network)
	return r
}

// State returns the current pass state.
func (r *Runner) State() domain.PassState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s domain.PassState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	for _, st := range domain.PassStates {
		v := 0.0
		if st == s {
			v = 1
		}
		metrics.BackfillState.WithLabelValues(r.cfg.Network, string(st)).Set(v)
	}
}

// Run executes one pass. The returned report is populated up to the point of
// failure when an error is returned. A completed pass leaves the runner in
// PassStateDone; a failed one returns it to PassStateIdle.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if !r.running.TryLock() {
		return nil, ErrPassInProgress
	}
	defer r.running.Unlock()

	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		DryRun:    r.cfg.DryRun,
	}
	log := r.log.With("run_id", report.RunID)

	defer func() {
		report.FinishedAt = time.Now()
		if r.State() != domain.PassStateDone {
			r.setState(domain.PassStateIdle)
		}
	}()

	r.setState(domain.PassStateScanning)
	archived, err := r.scanner.Scan(ctx, r.cfg.MaxPages, r.cfg.Owners)
	if err != nil {
		return report, fmt.Errorf("scan archive index: %w", err)
	}
	report.Archived = len(archived)
	metrics.ArchivedBlocks.WithLabelValues(r.cfg.Network).Set(float64(len(archived)))

	r.setState(domain.PassStateDiffing)
	latest, err := r.chain.LatestHeight(ctx)
	if err != nil {
		return report, fmt.Errorf("latest height: %w", err)
	}
	report.LatestHeight = latest

	missing := MissingBlocksStreaming(archived, latest)
	report.Missing = len(missing)
	report.MissingRanges = Ranges(missing)
	metrics.MissingBlocks.WithLabelValues(r.cfg.Network).Set(float64(len(missing)))
	log.Info("computed missing blocks",
		"latest", latest,
		"archived", len(archived),
		"missing", len(missing),
		"ranges", len(report.MissingRanges),
	)

	if r.cfg.DryRun {
		r.setState(domain.PassStateDone)
		return report, nil
	}

	if r.cfg.MaxBlocks > 0 && len(missing) > r.cfg.MaxBlocks {
		log.Info("limiting pass", "max_blocks", r.cfg.MaxBlocks)
		missing = missing[:r.cfg.MaxBlocks]
	}

	for _, n := range missing {
		if err := ctx.Err(); err != nil {
			log.Warn("pass cancelled", "uploaded", report.Uploaded)
			return report, err
		}
		if err := r.processBlock(ctx, log, report, n); err != nil {
			return report, fmt.Errorf("block %d: %w", n, err)
		}
	}

	r.setState(domain.PassStateDone)
	log.Info("backfill pass complete",
		"uploaded", report.Uploaded,
		"persist_failed", report.PersistFailed,
		"skipped", report.Skipped,
		"duration", time.Since(report.StartedAt),
	)
	return report, nil
}

func (r *Runner) processBlock(ctx context.Context, log *slog.Logger, report *Report, n uint64) error {
	if r.claimer != nil {
		ok, err := r.claimer.ClaimBlock(ctx, r.cfg.Network, n, report.RunID, r.cfg.ClaimTTL)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if !ok {
			log.Info("block claimed by another pass, skipping", "block", n)
			report.Skipped++
			metrics.BlocksSkippedTotal.WithLabelValues(r.cfg.Network).Inc()
			return nil
		}
	}

	rec, err := r.archiveBlock(ctx, log, n)
	if err != nil {
		r.release(ctx, log, n, report.RunID)
		return err
	}
	report.Uploaded++

	// The block is on the archive; recording it must outlive a cancelled pass.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	r.setState(domain.PassStatePersisting)
	if err := r.store.Save(recordCtx, rec); err != nil {
		report.PersistFailed++
		metrics.PersistFailuresTotal.WithLabelValues(r.cfg.Network).Inc()
		log.Error("failed to persist archive record, block is archived but unindexed",
			"block", rec.BlockNumber,
			"archive_id", rec.ArchiveID,
			"error", err,
		)
		if r.ledger != nil {
			if lerr := r.ledger.Add(recordCtx, rec); lerr != nil {
				log.Error("failed to record unindexed block", "block", rec.BlockNumber, "error", lerr)
			}
		}
	} else {
		log.Info("block archived", "block", rec.BlockNumber, "archive_id", rec.ArchiveID)
	}

	if r.claimer != nil {
		if err := r.claimer.CompleteBlock(recordCtx, r.cfg.Network, n, report.RunID, r.cfg.CompletedTTL); err != nil {
			log.Warn("failed to extend claim", "block", n, "error", err)
		}
	}
	return nil
}

// archiveBlock retrieves, encodes and uploads block n.
func (r *Runner) archiveBlock(ctx context.Context, log *slog.Logger, n uint64) (*domain.ArchiveRecord, error) {
	r.setState(domain.PassStateRetrieving)
	block, err := r.chain.GetBlock(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	number, err := evm.ParseHexUint64(domain.StringOrEmpty(block.Number))
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w: %w", domain.ErrMalformedResponse, err)
	}
	if number != n {
		metrics.BlockNumberMismatchTotal.WithLabelValues(r.cfg.Network).Inc()
		log.Warn("rpc returned a different block number than requested",
			"requested", n,
			"returned", number,
		)
	}
	hash := domain.StringOrEmpty(block.Hash)

	r.setState(domain.PassStateEncoding)
	payload, err := codec.EncodeCompressed(block)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	r.setState(domain.PassStateUploading)
	id, err := r.uploader.Upload(ctx, payload, r.blockTags(number, hash))
	if err != nil {
		metrics.UploadFailuresTotal.WithLabelValues(r.cfg.Network).Inc()
		return nil, fmt.Errorf("upload: %w", err)
	}
	metrics.UploadsTotal.WithLabelValues(r.cfg.Network).Inc()
	metrics.UploadBytes.WithLabelValues(r.cfg.Network).Observe(float64(len(payload)))

	return &domain.ArchiveRecord{
		BlockNumber: number,
		BlockHash:   domain.NormalizeHash(hash),
		ArchiveID:   id,
	}, nil
}

func (r *Runner) blockTags(number uint64, hash string) []domain.Tag {
	return []domain.Tag{
		{Name: domain.TagContentType, Value: "application/octet-stream"},
		{Name: domain.TagEncoding, Value: codec.EncodingName},
		{Name: domain.TagBlockNumber, Value: strconv.FormatUint(number, 10)},
		{Name: domain.TagBlockHash, Value: hash},
		{Name: domain.TagClientVersion, Value: r.cfg.ClientVersion},
		{Name: domain.TagNetwork, Value: r.cfg.Network},
		{Name: domain.TagBackfill, Value: "true"},
	}
}

func (r *Runner) release(ctx context.Context, log *slog.Logger, n uint64, owner string) {
	if r.claimer == nil {
		return
	}
	// The pass context may already be cancelled.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := r.claimer.ReleaseBlock(releaseCtx, r.cfg.Network, n, owner); err != nil {
		log.Warn("failed to release claim", "block", n, "error", err)
	}
}

// Loop runs a pass every interval until ctx is cancelled. Pass errors are
// logged and the next pass is attempted on schedule, or sooner when the
// RetryStrategy allows. With a Pacer the interval after a successful pass
// follows the remaining backlog.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) error {
	failures := 0
	for {
		wait := interval
		report, err := r.Run(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return ctx.Err()
		case err != nil:
			if r.retry != nil && r.retry.ShouldRetry(err, failures) {
				wait = min(r.retry.GetDelay(failures), interval)
			}
			failures++
			r.log.Error("backfill pass failed", "error", err, "failures", failures, "next_pass", wait)
		default:
			failures = 0
			if r.pacer != nil {
				wait = r.pacer.NextInterval(report.Backlog())
			}
			r.log.Info("backfill pass finished",
				"run_id", report.RunID,
				"uploaded", report.Uploaded,
				"backlog", report.Backlog(),
				"next_pass", wait,
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
