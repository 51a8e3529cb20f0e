package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/infra/storage"
)

const uniqueViolation = "23505"

const (
	insertArchiveRecord = `
		INSERT INTO archive_blocks (block_number, block_hash, archive_id)
		VALUES ($1, $2, $3)`

	selectByNumber = `
		SELECT block_number, block_hash, archive_id
		FROM archive_blocks
		WHERE block_number = $1
		ORDER BY created_at ASC
		LIMIT 1`

	selectByHash = `
		SELECT block_number, block_hash, archive_id
		FROM archive_blocks
		WHERE block_hash = $1
		ORDER BY created_at ASC
		LIMIT 1`

	countArchiveRecords = `SELECT COUNT(*) FROM archive_blocks`
)

// ArchiveRepo implements storage.ArchiveRepository using PostgreSQL.
type ArchiveRepo struct {
	db *DB
}

// NewArchiveRepo creates a new PostgreSQL archive repository.
func NewArchiveRepo(db *DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

type archiveRow struct {
	BlockNumber int64  `db:"block_number"`
	BlockHash   string `db:"block_hash"`
	ArchiveID   string `db:"archive_id"`
}

func (r *archiveRow) toDomain() *domain.ArchiveRecord {
	return &domain.ArchiveRecord{
		BlockNumber: uint64(r.BlockNumber),
		BlockHash:   r.BlockHash,
		ArchiveID:   r.ArchiveID,
	}
}

// Save inserts a record. The hash is stored without its 0x prefix.
func (r *ArchiveRepo) Save(ctx context.Context, rec *domain.ArchiveRecord) error {
	if err := storage.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, insertArchiveRecord,
		int64(rec.BlockNumber),
		domain.NormalizeHash(rec.BlockHash),
		rec.ArchiveID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("archive id %s: %w", rec.ArchiveID, storage.ErrDuplicate)
		}
		return fmt.Errorf("%w: failed to save block %d: %w", domain.ErrPersistence, rec.BlockNumber, err)
	}
	return nil
}

// GetByNumber retrieves a record by block number.
func (r *ArchiveRepo) GetByNumber(ctx context.Context, blockNumber uint64) (*domain.ArchiveRecord, error) {
	return r.getOne(ctx, selectByNumber, int64(blockNumber))
}

// GetByHash retrieves a record by block hash.
func (r *ArchiveRepo) GetByHash(ctx context.Context, blockHash string) (*domain.ArchiveRecord, error) {
	return r.getOne(ctx, selectByHash, domain.NormalizeHash(blockHash))
}

// Count returns the number of stored records.
func (r *ArchiveRepo) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var count int
	if err := r.db.GetContext(ctx, &count, countArchiveRecords); err != nil {
		return 0, fmt.Errorf("failed to count archive records: %w", err)
	}
	return count, nil
}

func (r *ArchiveRepo) getOne(ctx context.Context, query string, arg any) (*domain.ArchiveRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var row archiveRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archive record: %w", err)
	}
	return row.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
