package metrics

import (
	"sort"
	"sync"
	"time"
)

// Metrics is the thread-safe store behind the Collector.
type Metrics struct {
	mutex           sync.RWMutex
	totalWork       int64
	selections      map[string]int64
	attemptFailures map[string]int64
	outcomes        map[string]int64
	durations       []time.Duration
	startTime       time.Time
}

// Snapshot is the JSON shape served by the /metrics handler.
type Snapshot struct {
	TotalWork   int64                      `json:"total_work"`
	Uptime      time.Duration              `json:"uptime"`
	Endpoints   map[string]EndpointMetrics `json:"endpoints"`
	Outcomes    map[string]int64           `json:"outcomes"`
	AvgDuration time.Duration              `json:"avg_duration"`
	P50Duration time.Duration              `json:"p50_duration"`
	P95Duration time.Duration              `json:"p95_duration"`
	P99Duration time.Duration              `json:"p99_duration"`
}

// EndpointMetrics aggregates per-endpoint routing activity.
type EndpointMetrics struct {
	Selections      int64 `json:"selections"`
	AttemptFailures int64 `json:"attempt_failures"`
	InFlight        int   `json:"in_flight"`
	MaxConcurrent   int   `json:"max_concurrent"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:      make(map[string]int64),
		attemptFailures: make(map[string]int64),
		outcomes:        make(map[string]int64),
		startTime:       time.Now(),
	}
}

func (m *Metrics) IncrementWork() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.totalWork++
}

func (m *Metrics) RecordSelection(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[endpoint]++
}

func (m *Metrics) RecordAttemptFailure(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.attemptFailures[endpoint]++
}

// RecordOutcome records a terminal result. kind is "success" or the failure
// classification surfaced to the caller.
func (m *Metrics) RecordOutcome(kind string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.outcomes[kind]++
	m.durations = append(m.durations, duration)

	if len(m.durations) > 1000 {
		m.durations = m.durations[1:]
	}
}

// InFlightReader reports live endpoint capacity for the snapshot.
type InFlightReader interface {
	Name() string
	InFlight() int
	MaxConcurrent() int
}

func (m *Metrics) Snapshot(pool []InFlightReader) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalWork: m.totalWork,
		Uptime:    time.Since(m.startTime),
		Endpoints: make(map[string]EndpointMetrics),
		Outcomes:  make(map[string]int64, len(m.outcomes)),
	}

	for kind, count := range m.outcomes {
		snap.Outcomes[kind] = count
	}

	names := make(map[string]bool)
	for name := range m.selections {
		names[name] = true
	}
	for name := range m.attemptFailures {
		names[name] = true
	}

	live := make(map[string]InFlightReader, len(pool))
	for _, ep := range pool {
		names[ep.Name()] = true
		live[ep.Name()] = ep
	}

	for name := range names {
		em := EndpointMetrics{
			Selections:      m.selections[name],
			AttemptFailures: m.attemptFailures[name],
		}
		if ep, ok := live[name]; ok {
			em.InFlight = ep.InFlight()
			em.MaxConcurrent = ep.MaxConcurrent()
		}
		snap.Endpoints[name] = em
	}

	if len(m.durations) > 0 {
		sorted := make([]time.Duration, len(m.durations))
		copy(sorted, m.durations)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		snap.AvgDuration = average(sorted)
		snap.P50Duration = percentile(sorted, 0.50)
		snap.P95Duration = percentile(sorted, 0.95)
		snap.P99Duration = percentile(sorted, 0.99)
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
