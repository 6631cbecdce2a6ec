// Package metrics holds the Prometheus collectors shared by the binaries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bilancio"

// Render sources.
const (
	SourceHTTP    = "http"
	SourceSession = "session"
	SourceWorker  = "worker"
)

// Render results.
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

var RendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "flow",
	Name:      "renders_total",
	Help:      "Diagrams built from entries, by source and result.",
}, []string{"source", "result"})

var RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "flow",
	Name:      "render_duration_seconds",
	Help:      "Time spent building and drawing a diagram.",
	Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
}, []string{"source"})

var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "active",
	Help:      "Interactive diagram sessions held in memory.",
})

var SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "events_total",
	Help:      "Pointer, tick, click and view events applied to sessions.",
}, []string{"event"})

var SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "worker",
	Name:      "snapshots_total",
	Help:      "Snapshot jobs by outcome (saved, stale, missing, error).",
}, []string{"outcome"})

var MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "amqp",
	Name:      "published_total",
	Help:      "Budget changed messages published, by result.",
}, []string{"result"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// ObserveRender records one render started at start.
func ObserveRender(source, result string, start time.Time) {
	RendersTotal.WithLabelValues(source, result).Inc()
	RenderDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
