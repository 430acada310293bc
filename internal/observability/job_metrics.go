package observability

import (
	"sync/atomic"
	"time"
)

// JobMetrics are per-process worker counters served on the worker's /stats endpoint.
type JobMetrics struct {
	claimed   atomic.Uint64
	done      atomic.Uint64
	retried   atomic.Uint64
	failed    atomic.Uint64
	duplicate atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{}
}

func (m *JobMetrics) IncClaimed() { m.claimed.Add(1) }
func (m *JobMetrics) IncDone()    { m.done.Add(1) }
func (m *JobMetrics) IncRetried() { m.retried.Add(1) }
func (m *JobMetrics) IncFailed()  { m.failed.Add(1) }

// IncDuplicate counts jobs skipped because their notification was already delivered.
func (m *JobMetrics) IncDuplicate() { m.duplicate.Add(1) }

func (m *JobMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type JobMetricsSnapshot struct {
	Claimed         uint64        `json:"claimed"`
	Done            uint64        `json:"done"`
	Retried         uint64        `json:"retried"`
	Failed          uint64        `json:"failed"`
	Duplicate       uint64        `json:"duplicate"`
	DurationCount   uint64        `json:"durationCount"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *JobMetrics) Snapshot() JobMetricsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return JobMetricsSnapshot{
		Claimed:         m.claimed.Load(),
		Done:            m.done.Load(),
		Retried:         m.retried.Load(),
		Failed:          m.failed.Load(),
		Duplicate:       m.duplicate.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
