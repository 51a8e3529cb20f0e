package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks RPC calls per network and provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"network", "provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per network and provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"network", "provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archiver_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network", "provider", "method"},
	)

	// ChainLatestBlock tracks the latest block height reported by the chain
	ChainLatestBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archiver_chain_latest_block",
			Help: "Latest block height of the chain",
		},
		[]string{"network"},
	)

	// IndexPagesScanned counts archive index pages fetched
	IndexPagesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_index_pages_scanned_total",
			Help: "Total number of archive index pages fetched",
		},
		[]string{"owner"},
	)

	// ArchivedBlocks is the size of the archived set seen by the last scan
	ArchivedBlocks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archiver_archived_blocks",
			Help: "Number of distinct block numbers found in the archive index",
		},
		[]string{"network"},
	)

	// MissingBlocks is the size of the gap computed by the last pass
	MissingBlocks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archiver_missing_blocks",
			Help: "Number of blocks missing from the archive",
		},
		[]string{"network"},
	)

	// UploadsTotal counts successful archive uploads
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_uploads_total",
			Help: "Total number of blocks uploaded to the archive",
		},
		[]string{"network"},
	)

	// UploadFailuresTotal counts rejected or failed uploads
	UploadFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_upload_failures_total",
			Help: "Total number of failed archive uploads",
		},
		[]string{"network"},
	)

	// UploadBytes tracks compressed payload sizes
	UploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archiver_upload_bytes",
			Help:    "Size of uploaded compressed payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(512, 4, 8),
		},
		[]string{"network"},
	)

	// PersistFailuresTotal counts uploads whose pointer could not be stored
	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_persist_failures_total",
			Help: "Total number of archive records that failed to persist",
		},
		[]string{"network"},
	)

	// BlockNumberMismatchTotal counts blocks whose RPC number differs from the request
	BlockNumberMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_block_number_mismatch_total",
			Help: "Total number of retrieved blocks whose number differs from the requested one",
		},
		[]string{"network"},
	)

	// BlocksSkippedTotal counts blocks claimed by another pass
	BlocksSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_blocks_skipped_total",
			Help: "Total number of missing blocks skipped because another pass holds the claim",
		},
		[]string{"network"},
	)

	// BackfillState is 1 for the state the orchestrator is currently in
	BackfillState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backfill_state",
			Help: "Current backfill pass state (1 = active)",
		},
		[]string{"network", "state"},
	)

	// DBConnectionPoolUsage tracks open connections as a percentage of the pool limit
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archiver_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
