package health

import (
	"context"
	"sync"
	"time"
)

// Checker pings a dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Health implements Checker.
func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

// Counter reports the size of the unindexed ledger.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type component struct {
	name     string
	check    Checker
	required bool
}

// Monitor aggregates health status from the archiver's dependencies.
type Monitor struct {
	components []component
	unindexed  Counter
	cacheFor   time.Duration
	timeout    time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a new health monitor. Reports are cached for cacheFor.
func NewMonitor(cacheFor time.Duration) *Monitor {
	return &Monitor{
		cacheFor: cacheFor,
		timeout:  3 * time.Second,
	}
}

// Require registers a dependency whose failure makes the system critical.
func (m *Monitor) Require(name string, c Checker) *Monitor {
	m.components = append(m.components, component{name: name, check: c, required: true})
	return m
}

// Observe registers a dependency whose failure only degrades the system.
func (m *Monitor) Observe(name string, c Checker) *Monitor {
	m.components = append(m.components, component{name: name, check: c})
	return m
}

// WithUnindexed reports a degraded status while uploads await reconciliation.
func (m *Monitor) WithUnindexed(c Counter) *Monitor {
	m.unindexed = c
	return m
}

// CheckHealth checks every registered dependency.
func (m *Monitor) CheckHealth(ctx context.Context) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheFor {
		return m.lastReport
	}

	report := &Report{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.components)),
	}

	for _, c := range m.components {
		h := ComponentHealth{Name: c.name, Status: StatusHealthy}

		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := c.check.Health(checkCtx)
		cancel()

		if err != nil {
			h.Error = err.Error()
			h.Status = StatusDegraded
			if c.required {
				h.Status = StatusCritical
			}
		}
		report.Components[c.name] = h
		report.SystemStatus = worst(report.SystemStatus, h.Status)
	}

	if m.unindexed != nil {
		if n, err := m.unindexed.Count(ctx); err == nil {
			report.UnindexedBlocks = n
			if n > 0 {
				report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func worst(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
