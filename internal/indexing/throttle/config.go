package throttle

import "time"

// AdaptiveConfig holds configuration for adaptive pass scheduling.
type AdaptiveConfig struct {
	// Enabled controls whether adaptive scheduling is active
	Enabled bool

	// Interval bounds
	MinInterval time.Duration // Fastest pass rate (default: 5s)
	MaxInterval time.Duration // Slowest pass rate (default: 1h)

	// Head caching
	HeadCacheTTL time.Duration // How long to cache LatestHeight (default: 3s)

	// Backlog thresholds for interval adjustment
	BacklogNormalThreshold int64 // Below this = half the base interval (default: 10)
	BacklogBurstThreshold  int64 // Above this = max speed (default: 1000)
}

// DefaultConfig returns sensible defaults for adaptive scheduling.
func DefaultConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Enabled:                true,
		MinInterval:            5 * time.Second,
		MaxInterval:            time.Hour,
		HeadCacheTTL:           3 * time.Second,
		BacklogNormalThreshold: 10,
		BacklogBurstThreshold:  1000,
	}
}
