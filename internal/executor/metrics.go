package executor

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/glance/internal/dispatcher/handler"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu sync.RWMutex

	actionMetrics map[string]*ActionMetrics

	totalDispatches uint64
	totalErrors     uint64
	totalTimeouts   uint64
	totalPanics     uint64
	totalDuration   time.Duration
}

// ActionMetrics holds metrics for a specific action.
type ActionMetrics struct {
	ID            string
	DispatchCount uint64
	ErrorCount    uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastType      handler.MessageType
	LastDispatch  time.Time
}

// AverageDuration returns the mean dispatch duration.
func (am *ActionMetrics) AverageDuration() time.Duration {
	if am.DispatchCount == 0 {
		return 0
	}
	return am.TotalDuration / time.Duration(am.DispatchCount)
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		actionMetrics: make(map[string]*ActionMetrics),
	}
}

// RecordDispatch records one finished dispatch.
func (m *Metrics) RecordDispatch(id string, duration time.Duration, result handler.ExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	m.totalDuration += duration
	if result.IsError() {
		m.totalErrors++
	}
	if result.TimedOut {
		m.totalTimeouts++
	}

	am := m.actionMetrics[id]
	if am == nil {
		am = &ActionMetrics{
			ID:          id,
			MinDuration: duration,
			MaxDuration: duration,
		}
		m.actionMetrics[id] = am
	}

	am.DispatchCount++
	am.TotalDuration += duration
	am.LastType = result.MessageType
	am.LastDispatch = time.Now()

	if duration < am.MinDuration {
		am.MinDuration = duration
	}
	if duration > am.MaxDuration {
		am.MaxDuration = duration
	}
	if result.IsError() {
		am.ErrorCount++
	}
}

// RecordPanic records a recovered builtin panic.
func (m *Metrics) RecordPanic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPanics++
}

// TotalDispatches returns the total number of dispatches.
func (m *Metrics) TotalDispatches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches
}

// TotalErrors returns the number of dispatches that ended in an error.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalTimeouts returns the number of timed-out dispatches.
func (m *Metrics) TotalTimeouts() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalTimeouts
}

// TotalPanics returns the total number of panics recovered.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPanics
}

// AverageDuration returns the average dispatch duration.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.totalDispatches == 0 {
		return 0
	}
	return m.totalDuration / time.Duration(m.totalDispatches)
}

// ActionStats returns a copy of the metrics for one action, or nil.
func (m *Metrics) ActionStats(id string) *ActionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	am := m.actionMetrics[id]
	if am == nil {
		return nil
	}
	c := *am
	return &c
}

// TopActions returns the n most dispatched actions.
func (m *Metrics) TopActions(n int) []*ActionMetrics {
	return m.sorted(n, func(a, b *ActionMetrics) bool {
		if a.DispatchCount != b.DispatchCount {
			return a.DispatchCount > b.DispatchCount
		}
		return a.ID < b.ID
	})
}

// SlowestActions returns the n actions with the highest mean duration.
func (m *Metrics) SlowestActions(n int) []*ActionMetrics {
	return m.sorted(n, func(a, b *ActionMetrics) bool {
		if a.AverageDuration() != b.AverageDuration() {
			return a.AverageDuration() > b.AverageDuration()
		}
		return a.ID < b.ID
	})
}

func (m *Metrics) sorted(n int, less func(a, b *ActionMetrics) bool) []*ActionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	actions := make([]*ActionMetrics, 0, len(m.actionMetrics))
	for _, am := range m.actionMetrics {
		c := *am
		actions = append(actions, &c)
	}
	sort.Slice(actions, func(i, j int) bool {
		return less(actions[i], actions[j])
	})

	if n < 0 || n > len(actions) {
		n = len(actions)
	}
	return actions[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actionMetrics = make(map[string]*ActionMetrics)
	m.totalDispatches = 0
	m.totalErrors = 0
	m.totalTimeouts = 0
	m.totalPanics = 0
	m.totalDuration = 0
}
