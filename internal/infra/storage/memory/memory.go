package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/infra/storage"
)

// ArchiveRepo is an in-process storage.ArchiveRepository for dev mode and tests.
type ArchiveRepo struct {
	mu       sync.RWMutex
	byID     map[string]*domain.ArchiveRecord
	byNumber map[uint64]*domain.ArchiveRecord
	byHash   map[string]*domain.ArchiveRecord
}

func NewArchiveRepo() *ArchiveRepo {
	return &ArchiveRepo{
		byID:     make(map[string]*domain.ArchiveRecord),
		byNumber: make(map[uint64]*domain.ArchiveRecord),
		byHash:   make(map[string]*domain.ArchiveRecord),
	}
}

func (r *ArchiveRepo) Save(ctx context.Context, rec *domain.ArchiveRecord) error {
	if err := storage.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[rec.ArchiveID]; ok {
		return fmt.Errorf("archive id %s: %w", rec.ArchiveID, storage.ErrDuplicate)
	}

	stored := *rec
	stored.BlockHash = domain.NormalizeHash(stored.BlockHash)
	r.byID[stored.ArchiveID] = &stored
	// First write wins for lookups, matching the ordered SQL query.
	if _, ok := r.byNumber[stored.BlockNumber]; !ok {
		r.byNumber[stored.BlockNumber] = &stored
	}
	if _, ok := r.byHash[stored.BlockHash]; !ok {
		r.byHash[stored.BlockHash] = &stored
	}
	return nil
}

func (r *ArchiveRepo) GetByNumber(ctx context.Context, blockNumber uint64) (*domain.ArchiveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRecord(r.byNumber[blockNumber]), nil
}

func (r *ArchiveRepo) GetByHash(ctx context.Context, blockHash string) (*domain.ArchiveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRecord(r.byHash[domain.NormalizeHash(blockHash)]), nil
}

func (r *ArchiveRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func copyRecord(rec *domain.ArchiveRecord) *domain.ArchiveRecord {
	if rec == nil {
		return nil
	}
	out := *rec
	return &out
}
