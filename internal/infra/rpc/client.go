package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/indexing/metrics"
	"github.com/vietddude/weavearchive/internal/infra/rpc/provider"
	"github.com/vietddude/weavearchive/internal/infra/rpc/routing"
)

// Client is the high-level interface for making RPC calls.
// Providers are tried in order; the first is the primary endpoint.
type Client struct {
	network   string
	providers []provider.Provider
	retry     routing.RetryConfig
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg routing.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new RPC client over the given providers.
func NewClient(network string, providers []provider.Provider, opts ...Option) *Client {
	c := &Client{
		network:   network,
		providers: providers,
		retry:     routing.DefaultRetryConfig,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient builds a client with one HTTP provider per endpoint.
func NewHTTPClient(network string, endpoints []string, timeout time.Duration, opts ...Option) *Client {
	providers := make([]provider.Provider, 0, len(endpoints))
	for i, endpoint := range endpoints {
		name := "primary"
		if i > 0 {
			name = fmt.Sprintf("fallback-%d", i)
		}
		providers = append(providers, provider.NewHTTPProvider(name, endpoint, timeout))
	}
	return NewClient(network, providers, opts...)
}

// Call makes an RPC call with retry and failover across providers.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", domain.ErrTransport)
	}

	start := time.Now()
	result, err := routing.CallWithFailover(ctx, c.providers, method, params, c.retry)
	name := c.providers[0].GetName()

	metrics.RPCCallsTotal.WithLabelValues(c.network, name, method).Inc()
	metrics.RPCLatency.WithLabelValues(c.network, name, method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(c.network, name, errorType(err)).Inc()
		c.logger.Debug("rpc call failed", "method", method, "error", err)
		return nil, err
	}
	return result, nil
}

// GetProviderStats returns monitoring stats for all HTTP providers.
func (c *Client) GetProviderStats() map[string]provider.MonitorStats {
	stats := make(map[string]provider.MonitorStats)
	for _, p := range c.providers {
		if httpProv, ok := p.(*provider.HTTPProvider); ok {
			stats[p.GetName()] = httpProv.Monitor.GetStats()
		}
	}
	return stats
}

// Close releases provider resources.
func (c *Client) Close() error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func errorType(err error) string {
	var rpcErr *provider.RPCError
	switch {
	case errors.As(err, &rpcErr):
		return "rpc"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "context"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	default:
		return routing.ClassifyError(err).String()
	}
}
