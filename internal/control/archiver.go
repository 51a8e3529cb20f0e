// Package control wires configuration into a running archiver.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/weavearchive/internal/api"
	"github.com/vietddude/weavearchive/internal/core/config"
	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/indexing/backfill"
	"github.com/vietddude/weavearchive/internal/indexing/health"
	"github.com/vietddude/weavearchive/internal/indexing/recovery"
	"github.com/vietddude/weavearchive/internal/indexing/throttle"
	"github.com/vietddude/weavearchive/internal/infra/archive"
	"github.com/vietddude/weavearchive/internal/infra/chain/evm"
	redisclient "github.com/vietddude/weavearchive/internal/infra/redis"
	"github.com/vietddude/weavearchive/internal/infra/rpc"
	"github.com/vietddude/weavearchive/internal/infra/storage"
	"github.com/vietddude/weavearchive/internal/infra/storage/memory"
	"github.com/vietddude/weavearchive/internal/infra/storage/postgres"
)

// ErrWalletRequired is returned when an uploading pass has no wallet key.
var ErrWalletRequired = errors.New("archive.wallet_key is required to upload blocks")

// ErrLedgerDisabled is returned by Reconcile when Redis is not configured.
var ErrLedgerDisabled = errors.New("unindexed ledger requires redis")

// App is the archiver with all dependencies initialized.
type App struct {
	cfg         *config.AppConfig
	rpcClient   *rpc.Client
	chain       *evm.Client
	store       storage.ArchiveRepository
	db          *postgres.DB
	redisClient *redisclient.Client
	ledger      *redisclient.UnindexedRepo
	runner      *backfill.Runner
	monitor     *health.Monitor
	server      *api.Server
	log         *slog.Logger
}

// New creates the archiver. Postgres is used when database.url is set and is
// migrated before use, otherwise records are kept in memory. Redis enables block claims and the
// unindexed ledger.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.closeStores()
			return nil, err
		}
		a.store = postgres.NewArchiveRepo(db)
		a.log.Info("Using PostgreSQL storage", "driver", cfg.Database.Driver)
	} else {
		a.store = memory.NewArchiveRepo()
		a.log.Info("Using Memory storage")
	}

	// 2. Redis
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.ledger = redisclient.NewUnindexedRepo(client, cfg.Chain.NetworkTag)
	}

	// 3. Chain RPC
	a.rpcClient = rpc.NewHTTPClient(cfg.Chain.NetworkTag, cfg.Chain.Endpoints(), cfg.Chain.Timeout)
	a.chain = evm.NewClient(cfg.Chain.NetworkTag, a.rpcClient)

	// 4. Backfill runner
	if err := a.buildRunner(); err != nil {
		a.closeStores()
		return nil, err
	}

	// 5. Health and API
	head := throttle.NewHeadCache(a.chain, throttle.DefaultConfig().HeadCacheTTL)
	a.monitor = health.NewMonitor(10*time.Second).Observe("chain", head)
	if a.db != nil {
		a.monitor.Require("database", a.db)
	}
	if a.redisClient != nil {
		a.monitor.Observe("redis", a.redisClient).WithUnindexed(a.ledger)
	}
	a.server = api.NewServer(a.store, a.monitor, cfg.Server.Port, a.log)

	return a, nil
}

func (a *App) buildRunner() error {
	cfg := a.cfg
	var uploader backfill.Uploader
	if cfg.Archive.WalletKey != "" {
		transport, err := archive.NewHTTPTransport(cfg.Archive.UploaderURL, cfg.Archive.WalletKey, cfg.Archive.UploadTimeout)
		if err != nil {
			return fmt.Errorf("failed to init uploader: %w", err)
		}
		uploader = archive.NewUploader(transport, cfg.Archive.Protocol)
		a.log.Info("Uploader ready", "owner", transport.Owner(), "url", cfg.Archive.UploaderURL)
	} else if !cfg.Backfill.DryRun {
		a.log.Warn("No archive wallet key configured, backfill disabled")
		return nil
	}

	scanner := archive.NewScanner(archive.ScannerConfig{
		GatewayURL: cfg.Archive.GatewayURL,
		Protocol:   cfg.Archive.Protocol,
		PageSize:   cfg.Archive.PageSize,
		Timeout:    cfg.Archive.GQLTimeout,
	}, &http.Client{})

	opts := []backfill.Option{backfill.WithLogger(a.log)}
	if a.redisClient != nil {
		opts = append(opts, backfill.WithClaimer(a.redisClient), backfill.WithLedger(a.ledger))
	}
	if interval := cfg.Backfill.Interval; interval > 0 {
		pacing := throttle.DefaultConfig()
		pacing.MinInterval = min(pacing.MinInterval, interval)
		opts = append(opts,
			backfill.WithPacer(throttle.NewAdaptiveController(interval, pacing)),
			backfill.WithRetryStrategy(recovery.DefaultBackoff(recovery.Classify)),
		)
	}

	a.runner = backfill.NewRunner(backfill.Config{
		Network:       cfg.Chain.NetworkTag,
		ClientVersion: cfg.Chain.ClientVersion,
		Owners:        cfg.Archive.Owners,
		MaxPages:      cfg.Archive.MaxPages,
		MaxBlocks:     cfg.Backfill.MaxBlocks,
		DryRun:        cfg.Backfill.DryRun,
		ClaimTTL:      cfg.Redis.ClaimTTL,
		CompletedTTL:  cfg.Redis.CompletedTTL,
	}, scanner, a.chain, uploader, a.store, opts...)
	return nil
}

// Store returns the archive index store.
func (a *App) Store() storage.ArchiveRepository {
	return a.store
}

// Handler returns the API router.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Migrate applies database migrations. It is a no-op for memory storage.
func (a *App) Migrate(ctx context.Context) error {
	if a.db == nil {
		a.log.Info("Memory storage, no migrations to apply")
		return nil
	}
	return a.db.Migrate(ctx)
}

// Backfill runs one pass.
func (a *App) Backfill(ctx context.Context) (*backfill.Report, error) {
	if a.runner == nil {
		return nil, ErrWalletRequired
	}
	return a.runner.Run(ctx)
}

// ReconcileReport summarises a ledger drain.
type ReconcileReport struct {
	Pending int
	Stored  int
	Failed  int
}

// Reconcile stores every record in the unindexed ledger. Records that already
// exist are treated as stored. Records that still fail stay in the ledger.
func (a *App) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	if a.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return reconcile(ctx, a.ledger, a.store, a.log)
}

type ledgerSource interface {
	List(ctx context.Context) ([]*domain.ArchiveRecord, error)
	Remove(ctx context.Context, blockNumber uint64) error
}

func reconcile(ctx context.Context, ledger ledgerSource, store backfill.RecordStore, log *slog.Logger) (*ReconcileReport, error) {
	records, err := ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unindexed blocks: %w", err)
	}

	report := &ReconcileReport{Pending: len(records)}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := store.Save(ctx, rec)
		if err != nil && !errors.Is(err, storage.ErrDuplicate) {
			report.Failed++
			log.Error("failed to store unindexed block", "block", rec.BlockNumber, "archive_id", rec.ArchiveID, "error", err)
			continue
		}
		if err := ledger.Remove(ctx, rec.BlockNumber); err != nil {
			return report, fmt.Errorf("remove block %d from ledger: %w", rec.BlockNumber, err)
		}
		report.Stored++
		log.Info("reconciled block", "block", rec.BlockNumber, "archive_id", rec.ArchiveID)
	}
	return report, nil
}

// Start starts the API server and, when backfill.interval is positive,
// periodic backfill passes. It returns immediately.
func (a *App) Start(ctx context.Context) error {
	interval := a.cfg.Backfill.Interval
	if interval > 0 && a.runner == nil {
		return ErrWalletRequired
	}

	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("API server failed", "error", err)
		}
	}()
	a.log.Info("API server listening", "port", a.cfg.Server.Port)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	if interval > 0 {
		go func() {
			if err := a.runner.Loop(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("Backfill loop stopped", "error", err)
			}
		}()
		a.log.Info("Periodic backfill enabled", "interval", interval)
	}
	return nil
}

// Stop stops the API server and closes connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping archiver...")
	err := a.server.Stop(ctx)
	return errors.Join(err, a.Close())
}

// Close releases connections without touching the server.
func (a *App) Close() error {
	err := a.rpcClient.Close()
	return errors.Join(err, a.closeStores())
}

func (a *App) closeStores() error {
	var errs []error
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
