package throttle

import (
	"sync"
	"time"
)

// AdaptiveController computes the delay before the next backfill pass from
// the number of blocks the previous pass left behind.
type AdaptiveController struct {
	baseInterval time.Duration
	config       AdaptiveConfig

	mu              sync.Mutex
	currentInterval time.Duration
}

// NewAdaptiveController creates a new adaptive controller.
func NewAdaptiveController(baseInterval time.Duration, config AdaptiveConfig) *AdaptiveController {
	return &AdaptiveController{
		baseInterval:    baseInterval,
		config:          config,
		currentInterval: baseInterval,
	}
}

// NextInterval calculates the pass interval based on backlog.
//
// Algorithm:
//   - backlog ≤ 0: Use base interval (archive is complete, save API calls)
//   - backlog < normal: Use base interval × 0.5 (slightly behind)
//   - backlog < burst: Use min interval × 2 (catching up)
//   - backlog ≥ burst: Use min interval (maximum catchup speed)
func (c *AdaptiveController) NextInterval(backlog int64) time.Duration {
	if !c.config.Enabled {
		return c.baseInterval
	}

	var interval time.Duration

	switch {
	case backlog <= 0:
		interval = c.baseInterval

	case backlog < c.config.BacklogNormalThreshold:
		interval = c.baseInterval / 2

	case backlog < c.config.BacklogBurstThreshold:
		interval = c.config.MinInterval * 2

	default:
		interval = c.config.MinInterval
	}

	// Enforce bounds
	if interval < c.config.MinInterval {
		interval = c.config.MinInterval
	}
	if interval > c.config.MaxInterval {
		interval = c.config.MaxInterval
	}

	c.mu.Lock()
	c.currentInterval = interval
	c.mu.Unlock()
	return interval
}

// GetCurrentInterval returns the last computed interval (for metrics).
func (c *AdaptiveController) GetCurrentInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentInterval
}
