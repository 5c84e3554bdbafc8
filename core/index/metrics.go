package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace is the leading part of all published metrics.
const namespace = "ferret"

const indexSubsystem = "index"

/*
Metrics counts the work done by writers, readers and the deleter. A
nil *Metrics is valid and records nothing.
*/
type Metrics struct {
	DocsAdded        prometheus.Counter   // Documents handed to AddDocument.
	Flushes          prometheus.Counter   // Segments written from buffered documents.
	FlushDuration    prometheus.Histogram // Seconds spent per flush.
	Merges           prometheus.Counter   // Segment merges completed.
	MergedDocs       prometheus.Counter   // Live documents written by merges.
	Commits          prometheus.Counter   // Generations published.
	FilesDeleted     prometheus.Counter   // Index files removed.
	DeletionRequeues prometheus.Counter   // Deletes that failed and were queued again.
}

/*
NewMetrics creates the collectors and registers them on reg, which
may be nil to keep them unregistered.
*/
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "docs_added_total",
			Help:      "Number of documents added.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "flushes_total",
			Help:      "Number of segments flushed from buffered documents.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "flush_duration_seconds",
			Help:      "Time taken to flush a segment.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		Merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "merges_total",
			Help:      "Number of segment merges.",
		}),
		MergedDocs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "merged_docs_total",
			Help:      "Number of documents written by merges.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "commits_total",
			Help:      "Number of generations committed.",
		}),
		FilesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "files_deleted_total",
			Help:      "Number of index files deleted.",
		}),
		DeletionRequeues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: indexSubsystem,
			Name:      "deletion_requeues_total",
			Help:      "Number of failed file deletions queued for a retry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PrometheusCollectors()...)
	}
	return m
}

// PrometheusCollectors returns all collectors of m.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.DocsAdded, m.Flushes, m.FlushDuration, m.Merges, m.MergedDocs,
		m.Commits, m.FilesDeleted, m.DeletionRequeues,
	}
}

func (m *Metrics) docAdded() {
	if m != nil {
		m.DocsAdded.Inc()
	}
}

func (m *Metrics) flushed(start time.Time) {
	if m != nil {
		m.Flushes.Inc()
		m.FlushDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) merged(docs int) {
	if m != nil {
		m.Merges.Inc()
		m.MergedDocs.Add(float64(docs))
	}
}

func (m *Metrics) committed() {
	if m != nil {
		m.Commits.Inc()
	}
}

func (m *Metrics) fileDeleted() {
	if m != nil {
		m.FilesDeleted.Inc()
	}
}

func (m *Metrics) deletionRequeued() {
	if m != nil {
		m.DeletionRequeues.Inc()
	}
}
