package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

var (
	// ErrDuplicate is returned when an archive record already exists
	ErrDuplicate = fmt.Errorf("%w: duplicate archive record", domain.ErrPersistence)

	// ErrInvalidRecord is returned for records missing required fields
	ErrInvalidRecord = errors.New("invalid archive record")
)

// ArchiveRepository stores archive pointers for backfilled blocks.
// Lookups return nil, nil when no record exists.
type ArchiveRepository interface {
	// Save inserts a record. Records are never updated.
	Save(ctx context.Context, rec *domain.ArchiveRecord) error

	// GetByNumber retrieves the record for a block number
	GetByNumber(ctx context.Context, blockNumber uint64) (*domain.ArchiveRecord, error)

	// GetByHash retrieves the record for a block hash, with or without 0x
	GetByHash(ctx context.Context, blockHash string) (*domain.ArchiveRecord, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)
}

// Validate checks a record before it is written.
func Validate(rec *domain.ArchiveRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil", ErrInvalidRecord)
	}
	if rec.BlockHash == "" || rec.ArchiveID == "" {
		return fmt.Errorf("%w: block %d missing hash or archive id", ErrInvalidRecord, rec.BlockNumber)
	}
	return nil
}
