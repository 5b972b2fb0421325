// Package metrics exports Prometheus instruments for the sync server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pestscan"

type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	auditEventsTotal    *prometheus.CounterVec
	observationsTotal   *prometheus.CounterVec
	pendingPhotos       prometheus.Gauge
	conflictingObs      prometheus.Gauge
	changeFeedPageItems prometheus.Histogram
}

// New registers every instrument on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by transport, operation and result code",
		}, []string{"transport", "operation", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"transport", "operation"}),
		auditEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Appended session audit events by action",
		}, []string{"action"}),
		observationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observation_upserts_total",
			Help:      "Observation upserts by outcome",
		}, []string{"outcome"}),
		pendingPhotos: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "photos_pending_upload",
			Help:      "Registered photos whose upload is not confirmed",
		}),
		conflictingObs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations_conflict",
			Help:      "Live observations flagged CONFLICT",
		}),
		changeFeedPageItems: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "change_feed_page_items",
			Help:      "Rows returned by one change feed page",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}
}

func (m *Metrics) ObserveRequest(transport, operation, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(transport, operation, code).Inc()
	m.requestDuration.WithLabelValues(transport, operation).Observe(d.Seconds())
}

func (m *Metrics) AuditEvent(action string) {
	if m == nil {
		return
	}
	m.auditEventsTotal.WithLabelValues(action).Inc()
}

// ObservationOutcome counts an upsert result: inserted, updated, replayed,
// conflict or rejected.
func (m *Metrics) ObservationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.observationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChangeFeedPage(items int) {
	if m == nil {
		return
	}
	m.changeFeedPageItems.Observe(float64(items))
}

func (m *Metrics) SetPending(photos, conflicts int) {
	if m == nil {
		return
	}
	m.pendingPhotos.Set(float64(photos))
	m.conflictingObs.Set(float64(conflicts))
}
