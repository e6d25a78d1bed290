// Package metrics exposes Prometheus collectors for zone evaluation and dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricEvaluationsTotal   = "geoplaylists_evaluations_total"
	MetricZoneEntriesTotal   = "geoplaylists_zone_entries_total"
	MetricNotificationsTotal = "geoplaylists_notifications_total"
	MetricAlertsTotal        = "geoplaylists_alerts_total"
)

// evaluation modes
const (
	ModeForeground = "foreground"
	ModeBackground = "background"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	evaluations   *prometheus.CounterVec
	entries       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	alerts        prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEvaluationsTotal,
				Help: "Total number of location samples evaluated by mode",
			},
			[]string{"mode"},
		),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricZoneEntriesTotal,
				Help: "Total number of zone entry edges by mode",
			},
			[]string{"mode"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNotificationsTotal,
				Help: "Total number of scheduled notifications by kind",
			},
			[]string{"kind"},
		),
		alerts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricAlertsTotal,
				Help: "Total number of foreground alerts",
			},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.evaluations, m.entries, m.notifications, m.alerts} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) RecordEvaluation(mode string, entered int) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(mode).Inc()
	m.entries.WithLabelValues(mode).Add(float64(entered))
}

func (m *Metrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordAlert() {
	if m == nil {
		return
	}
	m.alerts.Inc()
}
