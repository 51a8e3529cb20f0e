package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Defaults for the WeaveVM alphanet deployment.
const (
	DefaultRPCURL        = "https://testnet-rpc.wvm.dev"
	DefaultGatewayURL    = "https://arweave.mainnet.irys.xyz"
	DefaultUploaderURL   = "https://node1.bundlr.network"
	DefaultClientVersion = "reth/v1.0.6"
	DefaultNetworkTag    = "Alphanet v0.1.0"
	DefaultProtocol      = "WeaveVM-ExEx"
)

// DefaultOwners are the publisher identities of the live ExEx uploader.
var DefaultOwners = []string{
	"5JUE58yemNynRDeQDyVECKbGVCQbnX7unPrBRqCPVn5Z",
	"F8XVrMQzsHiWfn1CaKtUPxAgUkATXQjXULWw3oVXCiFV",
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding ${ENV} references and applying defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = DefaultRPCURL
	}
	if cfg.Chain.NetworkTag == "" {
		cfg.Chain.NetworkTag = DefaultNetworkTag
	}
	if cfg.Chain.ClientVersion == "" {
		cfg.Chain.ClientVersion = DefaultClientVersion
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 10 * time.Second
	}

	if cfg.Archive.GatewayURL == "" {
		cfg.Archive.GatewayURL = DefaultGatewayURL
	}
	if cfg.Archive.UploaderURL == "" {
		cfg.Archive.UploaderURL = DefaultUploaderURL
	}
	if cfg.Archive.Protocol == "" {
		cfg.Archive.Protocol = DefaultProtocol
	}
	if len(cfg.Archive.Owners) == 0 {
		cfg.Archive.Owners = append([]string(nil), DefaultOwners...)
	}
	if cfg.Archive.PageSize == 0 {
		cfg.Archive.PageSize = 1000
	}
	if cfg.Archive.MaxPages == 0 {
		cfg.Archive.MaxPages = 1000
	}
	if cfg.Archive.GQLTimeout == 0 {
		cfg.Archive.GQLTimeout = 30 * time.Second
	}
	if cfg.Archive.UploadTimeout == 0 {
		cfg.Archive.UploadTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = 5 * time.Second
	}

	if cfg.Redis.ClaimTTL == 0 {
		cfg.Redis.ClaimTTL = 10 * time.Minute
	}
	if cfg.Redis.CompletedTTL == 0 {
		cfg.Redis.CompletedTTL = 24 * time.Hour
	}
}
