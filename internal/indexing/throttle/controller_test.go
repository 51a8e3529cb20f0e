package throttle

import (
	"testing"
	"time"
)

func TestNextInterval(t *testing.T) {
	config := DefaultConfig()
	config.MinInterval = 5 * time.Second
	config.MaxInterval = time.Hour
	config.BacklogNormalThreshold = 10
	config.BacklogBurstThreshold = 1000

	controller := NewAdaptiveController(10*time.Minute, config)

	tests := []struct {
		name     string
		backlog  int64
		expected time.Duration
	}{
		{
			name:     "archive complete (backlog=0)",
			backlog:  0,
			expected: 10 * time.Minute, // base interval
		},
		{
			name:     "slightly behind (backlog=3)",
			backlog:  3,
			expected: 5 * time.Minute, // base / 2
		},
		{
			name:     "catching up (backlog=200)",
			backlog:  200,
			expected: 10 * time.Second, // min * 2
		},
		{
			name:     "far behind (backlog=50000)",
			backlog:  50000,
			expected: 5 * time.Second, // min interval
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := controller.NextInterval(tt.backlog)
			if result != tt.expected {
				t.Errorf("NextInterval(%d) = %v, want %v", tt.backlog, result, tt.expected)
			}
			if controller.GetCurrentInterval() != tt.expected {
				t.Errorf("current interval not recorded")
			}
		})
	}
}

func TestNextInterval_Bounds(t *testing.T) {
	config := DefaultConfig()
	config.MinInterval = time.Minute
	config.MaxInterval = 2 * time.Minute

	controller := NewAdaptiveController(10*time.Minute, config)

	if got := controller.NextInterval(0); got != 2*time.Minute {
		t.Errorf("expected max bound, got %v", got)
	}
	if got := controller.NextInterval(5); got != 2*time.Minute {
		t.Errorf("expected max bound for half base, got %v", got)
	}
}

func TestNextInterval_Disabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	controller := NewAdaptiveController(10*time.Minute, config)
	if got := controller.NextInterval(50000); got != 10*time.Minute {
		t.Errorf("expected base interval when disabled, got %v", got)
	}
}
