// Package metrics exposes the service's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Module provides the registry and domain instruments.
var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(New),
)

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Metrics holds application-level instruments.
type Metrics struct {
	EventsAppended      *prometheus.CounterVec
	AppendConflicts     prometheus.Counter
	AppendRejections    *prometheus.CounterVec
	SnapshotsPublished  prometheus.Counter
	SnapshotEntries     prometheus.Histogram
	ReplayEvents        prometheus.Histogram
	ReconstructFailures *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		EventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_events_appended_total",
			Help: "Inventory events committed to the ledger.",
		}, []string{"kind"}),
		AppendConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockledger_append_conflicts_total",
			Help: "Transient append conflicts that triggered a retry.",
		}),
		AppendRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_append_rejections_total",
			Help: "Appends rejected before commit.",
		}, []string{"reason"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockledger_snapshots_published_total",
			Help: "Snapshots published.",
		}),
		SnapshotEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockledger_snapshot_entries",
			Help:    "Entries per published snapshot.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		ReplayEvents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockledger_reconstruction_replay_events",
			Help:    "Events replayed per reconstruction.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
		ReconstructFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockledger_reconstruction_failures_total",
			Help: "Reconstructions aborted by policy or integrity checks.",
		}, []string{"reason"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.EventsAppended,
		m.AppendConflicts,
		m.AppendRejections,
		m.SnapshotsPublished,
		m.SnapshotEntries,
		m.ReplayEvents,
		m.ReconstructFailures,
		m.HTTPDuration,
	)
	return m
}
