package chain

import (
	"context"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

// Client defines what the backfill pipeline needs from the source chain.
type Client interface {
	// LatestHeight returns the latest block number on the chain
	LatestHeight(ctx context.Context) (uint64, error)

	// GetBlock fetches a full block, transactions included, by number
	GetBlock(ctx context.Context, blockNumber uint64) (*domain.Block, error)
}
