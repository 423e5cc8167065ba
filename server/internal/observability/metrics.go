package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for pipeline operations.
type Metrics struct {
	mu sync.Mutex

	turnTotal     atomic.Int64
	turnDegraded  atomic.Int64
	escalations   atomic.Int64
	ticketsIssued atomic.Int64

	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordTurn records a completed turn and whether it degraded.
func (m *Metrics) RecordTurn(degraded bool, duration time.Duration) {
	m.turnTotal.Add(1)
	if degraded {
		m.turnDegraded.Add(1)
	}
	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordEscalation records a merged search escalation.
func (m *Metrics) RecordEscalation() {
	m.escalations.Add(1)
}

// RecordTicket records an issued ticket payload.
func (m *Metrics) RecordTicket() {
	m.ticketsIssued.Add(1)
}

// Snapshot is a point-in-time view of the collected counters.
type Snapshot struct {
	TurnTotal     int64         `json:"turn_total"`
	TurnDegraded  int64         `json:"turn_degraded"`
	Escalations   int64         `json:"escalations"`
	TicketsIssued int64         `json:"tickets_issued"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		TurnTotal:     m.turnTotal.Load(),
		TurnDegraded:  m.turnDegraded.Load(),
		Escalations:   m.escalations.Load(),
		TicketsIssued: m.ticketsIssued.Load(),
	}
	m.mu.Lock()
	if len(m.durations) > 0 {
		var total time.Duration
		for _, d := range m.durations {
			total += d
		}
		s.AvgDuration = total / time.Duration(len(m.durations))
	}
	m.mu.Unlock()
	return s
}
