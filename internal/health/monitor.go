package health

import (
	"context"
	"sync"
	"time"

	"github.com/openmms/mmsd/internal/infra/storage"
)

// CheckFunc probes a single dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	critical bool
	fn       CheckFunc
}

// Monitor aggregates health status from the service's dependencies.
type Monitor struct {
	checks     []check
	repo       storage.MessageRepository
	lastCheck  time.Time
	lastReport Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. repo may be nil when no
// message store is available.
func NewMonitor(repo storage.MessageRepository) *Monitor {
	return &Monitor{repo: repo}
}

// AddCheck registers a dependency probe. Critical checks turn the overall
// status critical when they fail; others only degrade it.
func (m *Monitor) AddCheck(name string, critical bool, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check{name: name, critical: critical, fn: fn})
}

// CheckHealth probes all registered dependencies.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid hammering dependencies
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Components != nil {
		return m.lastReport
	}

	report := Report{
		Status:     StatusHealthy,
		Components: make(map[string]ComponentHealth),
	}

	for _, c := range m.checks {
		ch := ComponentHealth{Component: c.name, Status: StatusHealthy}

		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.fn(probeCtx)
		cancel()

		if err != nil {
			ch.Error = err.Error()
			if c.critical {
				ch.Status = StatusCritical
			} else {
				ch.Status = StatusDegraded
			}
		}

		// Aggregate status (worst case wins)
		if ch.Status == StatusCritical {
			report.Status = StatusCritical
		} else if ch.Status == StatusDegraded && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}

		report.Components[c.name] = ch
	}

	if m.repo != nil {
		if counts, err := m.repo.CountByStatus(ctx); err == nil {
			report.Messages = make(map[string]int64, len(counts))
			for status, n := range counts {
				report.Messages[string(status)] = n
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
