package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finance_dashboard"

// Metrics holds the Prometheus collectors of the export pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	exportsTotal *prometheus.CounterVec
	exportRows   *prometheus.CounterVec
	refreshTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Number of exports by entity, format, sink and result.",
		}, []string{"entity", "format", "sink", "result"}),
		exportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_rows_total",
			Help:      "Number of records written by successful exports.",
		}, []string{"entity", "format"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_refresh_total",
			Help:      "Number of transaction refreshes by trigger and result.",
		}, []string{"trigger", "result"}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.exportsTotal, m.exportRows, m.refreshTotal)
	return m
}

// ObserveExport records the outcome of one export.
func (m *Metrics) ObserveExport(entity, format, sink string, rows int, err error) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(entity, format, sink, result(err)).Inc()
	if err == nil {
		m.exportRows.WithLabelValues(entity, format).Add(float64(rows))
	}
}

// ObserveRefresh records the outcome of one transaction refresh.
func (m *Metrics) ObserveRefresh(trigger string, err error) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(trigger, result(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
