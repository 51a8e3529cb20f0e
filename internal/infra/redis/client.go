package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for cross-pass block claims.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL          string        `yaml:"url"`
	Password     string        `yaml:"password"`
	ClaimTTL     time.Duration `yaml:"claim_ttl"`
	CompletedTTL time.Duration `yaml:"completed_ttl"`
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func claimKey(network string, blockNumber uint64) string {
	return fmt.Sprintf("archive_claim:%s:%d", network, blockNumber)
}

// Both scripts only touch a claim still held by the caller.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// ClaimBlock attempts to claim a block for upload by owner.
func (c *Client) ClaimBlock(
	ctx context.Context,
	network string,
	blockNumber uint64,
	owner string,
	ttl time.Duration,
) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, claimKey(network, blockNumber), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseBlock drops owner's claim so another pass may retry the block.
func (c *Client) ReleaseBlock(ctx context.Context, network string, blockNumber uint64, owner string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{claimKey(network, blockNumber)}, owner).Err(); err != nil {
		return fmt.Errorf("release claim failed: %w", err)
	}
	return nil
}

// CompleteBlock keeps owner's claim alive for ttl after a successful upload,
// covering the delay before the archive index reports the block.
func (c *Client) CompleteBlock(
	ctx context.Context,
	network string,
	blockNumber uint64,
	owner string,
	ttl time.Duration,
) error {
	key := claimKey(network, blockNumber)
	if err := completeScript.Run(ctx, c.rdb, []string{key}, owner, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("complete claim failed: %w", err)
	}
	return nil
}

// ClaimOwner returns the current claim holder, or "" when unclaimed.
func (c *Client) ClaimOwner(ctx context.Context, network string, blockNumber uint64) (string, error) {
	owner, err := c.rdb.Get(ctx, claimKey(network, blockNumber)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get failed: %w", err)
	}
	return owner, nil
}
