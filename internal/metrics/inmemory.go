package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters keyed by label.
type Snapshot struct {
	Started  map[string]int
	Failed   map[string]int // key: action/stage
	Refunded map[string]int
	Observed int
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu       sync.Mutex
	started  map[string]int
	failed   map[string]int
	refunded map[string]int
	observed int
}

func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		started:  map[string]int{},
		failed:   map[string]int{},
		refunded: map[string]int{},
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Started:  copyCounts(m.started),
		Failed:   copyCounts(m.failed),
		Refunded: copyCounts(m.refunded),
		Observed: m.observed,
	}
}

func (m *InMemoryRecorder) IncActionStarted(action string) {
	m.mu.Lock()
	m.started[action]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncActionFailed(action, stage string) {
	m.mu.Lock()
	m.failed[action+"/"+stage]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) ObserveActionDuration(action, outcome string, duration time.Duration) {
	m.mu.Lock()
	m.observed++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) AddCreditsRefunded(action string, amount int) {
	m.mu.Lock()
	m.refunded[action] += amount
	m.mu.Unlock()
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
