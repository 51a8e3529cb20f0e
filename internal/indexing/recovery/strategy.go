// Package recovery decides how soon a failed backfill pass is retried.
package recovery

import (
	"errors"
	"math"
	"time"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

// FailureCategory groups pass failures by whether a retry can help.
type FailureCategory int

const (
	CategoryTransient FailureCategory = iota // network, index or store outage
	CategoryPermanent                        // rejected upload, bad data
)

// Classifier maps an error to a category.
type Classifier func(err error) FailureCategory

// RetryStrategy defines how retries should be handled.
type RetryStrategy interface {
	// GetDelay returns the delay for the given attempt (0-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry checks if we should retry based on the error and attempt count.
	ShouldRetry(err error, attempt int) bool
}

// ExponentialBackoff implements a standard backoff strategy.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Classifier   Classifier
}

// DefaultBackoff returns sensible defaults for retrying a pass.
// 2s, 4s, 8s, 16s, 32s (Max 60s)
func DefaultBackoff(classifier Classifier) *ExponentialBackoff {
	if classifier == nil {
		classifier = Classify
	}
	return &ExponentialBackoff{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		MaxAttempts:  5,
		Classifier:   classifier,
	}
}

// GetDelay calculates delay: InitialDelay * 2^attempt
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry checks if error is transient and max attempts not exceeded.
func (s *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	if attempt >= s.MaxAttempts {
		return false
	}
	return s.Classifier(err) == CategoryTransient
}

// Classify treats upload rejections, encoding failures and malformed chain
// data as permanent. Upload rejections are checked first: a rejected upload
// may also carry ErrTransport, and retrying it quickly costs funds.
func Classify(err error) FailureCategory {
	switch {
	case errors.Is(err, domain.ErrUploadRejected),
		errors.Is(err, domain.ErrEncoding),
		errors.Is(err, domain.ErrMalformedResponse):
		return CategoryPermanent
	default:
		return CategoryTransient
	}
}
