package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

// mockClient implements chain.Client for testing
type mockClient struct {
	latestBlock uint64
	err         error
	callCount   int
	blockCalls  int
}

func (m *mockClient) LatestHeight(ctx context.Context) (uint64, error) {
	m.callCount++
	return m.latestBlock, m.err
}

func (m *mockClient) GetBlock(ctx context.Context, blockNumber uint64) (*domain.Block, error) {
	m.blockCalls++
	return &domain.Block{Number: domain.Ptr("0x1")}, nil
}

func TestHeadCache_CachesWithinTTL(t *testing.T) {
	mock := &mockClient{latestBlock: 1000}
	cache := NewHeadCache(mock, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		head, err := cache.LatestHeight(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if head != 1000 {
			t.Errorf("expected 1000, got %d", head)
		}
	}

	if mock.callCount != 1 {
		t.Errorf("expected 1 call, got %d", mock.callCount)
	}
}

func TestHeadCache_CachesGenesis(t *testing.T) {
	mock := &mockClient{latestBlock: 0}
	cache := NewHeadCache(mock, time.Minute)

	cache.LatestHeight(context.Background())
	cache.LatestHeight(context.Background())

	if mock.callCount != 1 {
		t.Errorf("a head of 0 is a valid cached value, got %d calls", mock.callCount)
	}
}

func TestHeadCache_ExpiresAfterTTL(t *testing.T) {
	mock := &mockClient{latestBlock: 1000}
	cache := NewHeadCache(mock, 10*time.Millisecond)
	ctx := context.Background()

	cache.LatestHeight(ctx)
	time.Sleep(20 * time.Millisecond)
	mock.latestBlock = 1001

	head, _ := cache.LatestHeight(ctx)
	if head != 1001 {
		t.Errorf("expected fresh head 1001, got %d", head)
	}
	if mock.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", mock.callCount)
	}
}

func TestHeadCache_Invalidate(t *testing.T) {
	mock := &mockClient{latestBlock: 1000}
	cache := NewHeadCache(mock, time.Minute)
	ctx := context.Background()

	cache.LatestHeight(ctx)
	cache.Invalidate()
	cache.LatestHeight(ctx)

	if mock.callCount != 2 {
		t.Errorf("expected 2 calls after invalidate, got %d", mock.callCount)
	}
}

func TestHeadCache_ErrorsAreNotCached(t *testing.T) {
	mock := &mockClient{err: errors.New("rpc down")}
	cache := NewHeadCache(mock, time.Minute)
	ctx := context.Background()

	if err := cache.Health(ctx); err == nil {
		t.Fatal("expected health error")
	}
	mock.err = nil
	mock.latestBlock = 7
	if err := cache.Health(ctx); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if mock.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", mock.callCount)
	}
}

func TestHeadCache_GetBlockPassesThrough(t *testing.T) {
	mock := &mockClient{}
	cache := NewHeadCache(mock, time.Minute)

	cache.GetBlock(context.Background(), 1)
	cache.GetBlock(context.Background(), 1)

	if mock.blockCalls != 2 {
		t.Errorf("expected blocks to be fetched every time, got %d", mock.blockCalls)
	}
}
