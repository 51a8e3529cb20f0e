package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

// UnindexedRepo records blocks that were uploaded but whose archive record
// could not be stored. Entries do not expire: each one is a paid upload.
type UnindexedRepo struct {
	rdb     *redis.Client
	network string
}

// NewUnindexedRepo creates a new Redis-backed unindexed ledger.
func NewUnindexedRepo(client *Client, network string) *UnindexedRepo {
	return &UnindexedRepo{
		rdb:     client.rdb,
		network: network,
	}
}

// Key helpers
func (r *UnindexedRepo) queueKey() string {
	return fmt.Sprintf("unindexed_blocks:%s", r.network)
}

func (r *UnindexedRepo) recordKey(blockNumber uint64) string {
	return fmt.Sprintf("unindexed_block:%s:%d", r.network, blockNumber)
}

// Add records an archive pointer awaiting persistence.
func (r *UnindexedRepo) Add(ctx context.Context, rec *domain.ArchiveRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal archive record: %w", err)
	}

	member := strconv.FormatUint(rec.BlockNumber, 10)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(rec.BlockNumber), data, 0)
		pipe.ZAdd(ctx, r.queueKey(), redis.Z{Score: float64(rec.BlockNumber), Member: member})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add unindexed block: %w", err)
	}
	return nil
}

// List returns all pending records in ascending block order.
func (r *UnindexedRepo) List(ctx context.Context) ([]*domain.ArchiveRecord, error) {
	members, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	records := make([]*domain.ArchiveRecord, 0, len(members))
	for _, member := range members {
		n, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}

		data, err := r.rdb.Get(ctx, r.recordKey(n)).Bytes()
		if err == redis.Nil {
			// Record gone but number still queued, drop it
			r.rdb.ZRem(ctx, r.queueKey(), member)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get unindexed block: %w", err)
		}

		var rec domain.ArchiveRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal unindexed block %d: %w", n, err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Remove deletes a record once it has been persisted.
func (r *UnindexedRepo) Remove(ctx context.Context, blockNumber uint64) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.queueKey(), strconv.FormatUint(blockNumber, 10))
		pipe.Del(ctx, r.recordKey(blockNumber))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove unindexed block: %w", err)
	}
	return nil
}

// Count returns the number of pending records.
func (r *UnindexedRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
