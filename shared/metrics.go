package shared

import (
	"sync"
	"time"
)

// OperationSnapshot is a point-in-time view of one operation's counters.
type OperationSnapshot struct {
	Count           int64         `json:"count"`
	Errors          int64         `json:"errors"`
	AverageDuration time.Duration `json:"average_duration"`
	LastCalledAt    time.Time     `json:"last_called_at"`
}

// OperationMetrics collects per-operation call counts and latencies in
// process. It is shared by the services and exposed through the performance
// endpoint.
type OperationMetrics struct {
	mutex sync.Mutex
	stats map[string]*operationStats
}

type operationStats struct {
	count         int64
	errors        int64
	totalDuration time.Duration
	lastCalledAt  time.Time
}

// NewOperationMetrics creates an empty metrics collector.
func NewOperationMetrics() *OperationMetrics {
	return &OperationMetrics{
		stats: make(map[string]*operationStats),
	}
}

// Record registers one completed call of the named operation.
func (m *OperationMetrics) Record(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats, exists := m.stats[operation]
	if !exists {
		stats = &operationStats{}
		m.stats[operation] = stats
	}

	stats.count++
	stats.totalDuration += duration
	stats.lastCalledAt = time.Now()
	if err != nil {
		stats.errors++
	}
}

// Snapshot returns a copy of all counters keyed by operation name.
func (m *OperationMetrics) Snapshot() map[string]OperationSnapshot {
	if m == nil {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	snapshot := make(map[string]OperationSnapshot, len(m.stats))
	for operation, stats := range m.stats {
		average := time.Duration(0)
		if stats.count > 0 {
			average = stats.totalDuration / time.Duration(stats.count)
		}
		snapshot[operation] = OperationSnapshot{
			Count:           stats.count,
			Errors:          stats.errors,
			AverageDuration: average,
			LastCalledAt:    stats.lastCalledAt,
		}
	}
	return snapshot
}
