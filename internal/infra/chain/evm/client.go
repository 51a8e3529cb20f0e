package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/indexing/metrics"
)

// Caller is the JSON-RPC surface the client needs. *rpc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// Client reads blocks from an EVM JSON-RPC endpoint.
type Client struct {
	network string
	caller  Caller
	log     *slog.Logger
}

func NewClient(network string, caller Caller) *Client {
	return &Client{
		network: network,
		caller:  caller,
		log:     slog.Default().With("component", "evm", "network", network),
	}
}

func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	result, err := c.caller.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", transportErr(err))
	}

	var blockHex string
	if err := json.Unmarshal(result, &blockHex); err != nil {
		return 0, fmt.Errorf("%w: eth_blockNumber result %s", domain.ErrMalformedResponse, result)
	}

	height, err := ParseHexUint64(blockHex)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	metrics.ChainLatestBlock.WithLabelValues(c.network).Set(float64(height))
	return height, nil
}

func (c *Client) GetBlock(ctx context.Context, blockNumber uint64) (*domain.Block, error) {
	params := []any{FormatHexUint64(blockNumber), true}
	result, err := c.caller.Call(ctx, "eth_getBlockByNumber", params)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber %d failed: %w", blockNumber, transportErr(err))
	}

	if len(bytes.TrimSpace(result)) == 0 || bytes.Equal(bytes.TrimSpace(result), []byte("null")) {
		return nil, fmt.Errorf("%w: block %d not returned", domain.ErrMalformedResponse, blockNumber)
	}

	var block domain.Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("%w: decode block %d: %w", domain.ErrMalformedResponse, blockNumber, err)
	}

	if block.Number == nil || block.Hash == nil {
		return nil, fmt.Errorf("%w: block %d missing number or hash", domain.ErrMalformedResponse, blockNumber)
	}

	c.log.Debug("fetched block", "block", blockNumber, "hash", *block.Hash, "txs", block.TxCount())
	return &block, nil
}

// transportErr tags errors that don't already carry a classification.
func transportErr(err error) error {
	if errors.Is(err, domain.ErrTransport) || errors.Is(err, domain.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransport, err)
}
