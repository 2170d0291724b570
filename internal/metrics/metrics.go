// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "building_service"

type Metrics struct {
	registry *prometheus.Registry

	NotificationsUpserted *prometheus.CounterVec
	NotificationsDeleted  *prometheus.CounterVec
	SyncRuns              *prometheus.CounterVec
	SyncDuration          prometheus.Histogram
	WorkOrderTransitions  *prometheus.CounterVec
	MassAssignOrders      *prometheus.CounterVec
	EmailsSent            *prometheus.CounterVec
	HTTPRequests          *prometheus.CounterVec
}

// New registers every collector on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		NotificationsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_upserted_total",
			Help:      "Notifications written by the synchronizer.",
		}, []string{"category", "op"}),
		NotificationsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_deleted_total",
			Help:      "Notifications removed as stale, expired or pruned.",
		}, []string{"reason"}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_sync_runs_total",
			Help:      "Per-user notification sync runs by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_sync_job_seconds",
			Help:      "Duration of the global notification sync job.",
			Buckets:   prometheus.DefBuckets,
		}),
		WorkOrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_order_transitions_total",
			Help:      "Work order status changes by target status.",
		}, []string{"to"}),
		MassAssignOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mass_assign_orders_total",
			Help:      "Mass assignment results per building.",
		}, []string{"result"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Outgoing e-mails by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.NotificationsUpserted, m.NotificationsDeleted,
		m.SyncRuns, m.SyncDuration,
		m.WorkOrderTransitions, m.MassAssignOrders,
		m.EmailsSent, m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The helpers below accept a nil receiver so services can run without metrics.

func (m *Metrics) CountUpserted(category, op string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.NotificationsUpserted.WithLabelValues(category, op).Add(float64(n))
}

func (m *Metrics) CountDeleted(reason string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.NotificationsDeleted.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) CountSyncRun(outcome string) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSyncDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SyncDuration.Observe(seconds)
}

func (m *Metrics) CountTransition(to string) {
	if m == nil {
		return
	}
	m.WorkOrderTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) CountMassAssign(created, skipped int) {
	if m == nil {
		return
	}
	m.MassAssignOrders.WithLabelValues("created").Add(float64(created))
	m.MassAssignOrders.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) CountEmail(outcome string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountHTTP(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
