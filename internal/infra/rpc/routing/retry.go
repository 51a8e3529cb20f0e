package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialDelay:    1 * time.Second,
	MaxDelay:        60 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// fatalCodes are JSON-RPC errors caused by the request itself.
// -32700: Parse error, -32600: Invalid Request, -32601: Method not found, -32602: Invalid params
var fatalCodes = map[int]bool{-32700: true, -32600: true, -32601: true, -32602: true}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFatal
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return ActionFatal
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) && fatalCodes[rpcErr.Code] {
		return ActionFatal
	}

	s := err.Error()
	if strings.Contains(s, "-32700") || strings.Contains(s, "-32600") ||
		strings.Contains(s, "-32601") || strings.Contains(s, "-32602") {
		return ActionFatal
	}

	// Failover (Provider specific issues)
	sLower := strings.ToLower(s)
	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "quota") || strings.Contains(sLower, "plan limit") ||
		strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "rate limit") ||
		strings.Contains(sLower, "count exceeded") {
		return ActionFailover
	}

	// Default to Retry (Network, 5xx, etc)
	return ActionRetry
}

// Do runs fn with exponential backoff until it succeeds, the error is fatal,
// or attempts run out. Failover-class errors are retried since fn has no
// alternative endpoint.
func Do(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	return do(ctx, config, fn, false)
}

func do(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error, stopOnFailover bool) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		switch ClassifyError(err) {
		case ActionFatal:
			return err
		case ActionFailover:
			if stopOnFailover {
				return err
			}
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateBackoff(attempt, config)):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// CallWithRetry executes an RPC call with exponential backoff.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	method string,
	params []any,
	config RetryConfig,
) (json.RawMessage, error) {
	var result json.RawMessage
	err := do(ctx, config, func(ctx context.Context) error {
		var err error
		result, err = p.Call(ctx, method, params)
		return err
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CallWithFailover tries each available provider in order, retrying on each.
// Fatal errors stop immediately.
func CallWithFailover(
	ctx context.Context,
	providers []provider.Provider,
	method string,
	params []any,
	config RetryConfig,
) (json.RawMessage, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", domain.ErrTransport)
	}

	candidates := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		// Every provider is backing off; try them anyway rather than fail outright.
		candidates = providers
	}

	var lastErr error
	for _, p := range candidates {
		result, err := CallWithRetry(ctx, p, method, params, config)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) == ActionFatal {
			return nil, fmt.Errorf("fatal error from provider %s: %w", p.GetName(), err)
		}
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
