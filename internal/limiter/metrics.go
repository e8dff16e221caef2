package limiter

import "sync/atomic"

// Metrics exposes counters and gauges for export job admission. The fields
// are intentionally minimal to keep dependencies light while still being
// consumable by external collectors.
type Metrics struct {
	activeJobs      atomic.Int64
	completedJobs   atomic.Int64
	failedJobs      atomic.Int64
	rejected        atomic.Int64
	acquireTimeouts atomic.Int64
}

// NewMetrics constructs an empty Metrics collection.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncActiveJobs increments the active job gauge.
func (m *Metrics) IncActiveJobs() {
	if m == nil {
		return
	}
	m.activeJobs.Add(1)
}

// DecActiveJobs decrements the active job gauge.
func (m *Metrics) DecActiveJobs() {
	if m == nil {
		return
	}
	m.activeJobs.Add(-1)
}

// ActiveJobs reports the number of exports currently running.
func (m *Metrics) ActiveJobs() int64 {
	if m == nil {
		return 0
	}
	return m.activeJobs.Load()
}

// IncCompletedJobs increments the completed export counter.
func (m *Metrics) IncCompletedJobs() {
	if m == nil {
		return
	}
	m.completedJobs.Add(1)
}

// CompletedJobs reports how many exports finished successfully.
func (m *Metrics) CompletedJobs() int64 {
	if m == nil {
		return 0
	}
	return m.completedJobs.Load()
}

// IncFailedJobs increments the failed export counter.
func (m *Metrics) IncFailedJobs() {
	if m == nil {
		return
	}
	m.failedJobs.Add(1)
}

// FailedJobs reports how many exports failed.
func (m *Metrics) FailedJobs() int64 {
	if m == nil {
		return 0
	}
	return m.failedJobs.Load()
}

// IncRejected increments the counter for jobs refused at capacity.
func (m *Metrics) IncRejected() {
	if m == nil {
		return
	}
	m.rejected.Add(1)
}

// Rejected reports how many jobs were refused at capacity.
func (m *Metrics) Rejected() int64 {
	if m == nil {
		return 0
	}
	return m.rejected.Load()
}

// IncAcquireTimeouts increments the acquire timeout counter.
func (m *Metrics) IncAcquireTimeouts() {
	if m == nil {
		return
	}
	m.acquireTimeouts.Add(1)
}

// AcquireTimeouts reports how many jobs timed out waiting for a slot.
func (m *Metrics) AcquireTimeouts() int64 {
	if m == nil {
		return 0
	}
	return m.acquireTimeouts.Load()
}

// Snapshot is the JSON shape served by the metrics endpoint.
type Snapshot struct {
	ActiveJobs      int64 `json:"active_jobs"`
	CompletedJobs   int64 `json:"completed_jobs"`
	FailedJobs      int64 `json:"failed_jobs"`
	Rejected        int64 `json:"rejected"`
	AcquireTimeouts int64 `json:"acquire_timeouts"`
}

// Snapshot captures the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ActiveJobs:      m.ActiveJobs(),
		CompletedJobs:   m.CompletedJobs(),
		FailedJobs:      m.FailedJobs(),
		Rejected:        m.Rejected(),
		AcquireTimeouts: m.AcquireTimeouts(),
	}
}
