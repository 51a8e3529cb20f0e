package config

import (
	"time"

	redisclient "github.com/vietddude/weavearchive/internal/infra/redis"
	"github.com/vietddude/weavearchive/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Chain    ChainConfig        `yaml:"chain"`
	Archive  ArchiveConfig      `yaml:"archive"`
	Backfill BackfillConfig     `yaml:"backfill"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainConfig holds settings for the source chain RPC.
type ChainConfig struct {
	RPCURL        string        `yaml:"rpc_url"`
	FallbackURLs  []string      `yaml:"fallback_urls"`
	NetworkTag    string        `yaml:"network_tag"`
	ClientVersion string        `yaml:"client_version"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Endpoints returns the primary RPC URL followed by any fallbacks.
func (c ChainConfig) Endpoints() []string {
	endpoints := []string{c.RPCURL}
	for _, u := range c.FallbackURLs {
		if u != "" && u != c.RPCURL {
			endpoints = append(endpoints, u)
		}
	}
	return endpoints
}

// ArchiveConfig holds settings for the archive index gateway and the uploader.
type ArchiveConfig struct {
	GatewayURL    string        `yaml:"gateway_url"`
	UploaderURL   string        `yaml:"uploader_url"`
	Protocol      string        `yaml:"protocol"`
	Owners        []string      `yaml:"owners"`
	PageSize      int           `yaml:"page_size"`
	MaxPages      uint32        `yaml:"max_pages"`
	GQLTimeout    time.Duration `yaml:"gql_timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	WalletKey     string        `yaml:"wallet_key"` // base58 ed25519 secret
}

// BackfillConfig holds per-pass limits.
type BackfillConfig struct {
	MaxBlocks int           `yaml:"max_blocks"` // 0 = unlimited
	DryRun    bool          `yaml:"dry_run"`
	Interval  time.Duration `yaml:"interval"` // serve mode only, 0 = disabled
}
