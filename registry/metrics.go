package registry

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of the registry counters.
type MetricsSnapshot struct {
	SessionsCreated int64
	SessionsActive  int64
	RoutedToClient  int64
	RoutedToWorker  int64
	Dropped         int64
}

// Metrics tracks session and routing counters with atomic updates.
type Metrics struct {
	sessionsCreated atomic.Int64
	sessionsActive  atomic.Int64
	routedToClient  atomic.Int64
	routedToWorker  atomic.Int64
	dropped         atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Add(1)
	m.sessionsActive.Add(1)
}

func (m *Metrics) RecordSessionDestroyed() {
	m.sessionsActive.Add(-1)
}

func (m *Metrics) RecordRoutedToClient() {
	m.routedToClient.Add(1)
}

func (m *Metrics) RecordRoutedToWorker() {
	m.routedToWorker.Add(1)
}

func (m *Metrics) RecordDropped() {
	m.dropped.Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsCreated: m.sessionsCreated.Load(),
		SessionsActive:  m.sessionsActive.Load(),
		RoutedToClient:  m.routedToClient.Load(),
		RoutedToWorker:  m.routedToWorker.Load(),
		Dropped:         m.dropped.Load(),
	}
}
