package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "fuel_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds the service's Prometheus collectors on a private registry,
// so several servers (tests) can coexist in one process. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsWritten    *prometheus.CounterVec
	analysisRequests *prometheus.CounterVec
	analysisLatency  *prometheus.HistogramVec
	exportsTotal     *prometheus.CounterVec
	tankLevel        *prometheus.GaugeVec
	tankDiscrepancy  *prometheus.GaugeVec
	storeUp          prometheus.Gauge
}

// NewMetrics registers the service collectors plus Go runtime and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_written_total",
				Help: "Fuel event writes by operation and result",
			},
			[]string{"op", "result"},
		),
		analysisRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analysis_requests_total",
				Help: "Report and analysis requests by kind and result",
			},
			[]string{"kind", "result"},
		),
		analysisLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analysis_latency_seconds",
				Help:    "Report and analysis latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exports_total",
				Help: "File exports by format",
			},
			[]string{"format"},
		),
		tankLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "tank_level_litres",
				Help: "Reconstructed current tank level per machine",
			},
			[]string{"machinery_id", "machinery"},
		),
		tankDiscrepancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "tank_discrepancy_litres",
				Help: "Overall discrepancy over all closed and open cycles per machine",
			},
			[]string{"machinery_id", "machinery"},
		),
		storeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "store_up",
			Help: "1 when the last store check succeeded",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsWritten,
		m.analysisRequests,
		m.analysisLatency,
		m.exportsTotal,
		m.tankLevel,
		m.tankDiscrepancy,
		m.storeUp,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func resultLabel(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveWrite counts one create, update or delete of a fuel event.
func (m *Metrics) ObserveWrite(op string, err error) {
	if m == nil {
		return
	}
	m.eventsWritten.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveAnalysis records the outcome and latency of a read request.
func (m *Metrics) ObserveAnalysis(kind string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.analysisRequests.WithLabelValues(kind, resultLabel(err)).Inc()
	m.analysisLatency.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// ObserveExport counts one generated file.
func (m *Metrics) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format).Inc()
}

// SetTankLevel publishes one machine's reconstructed level and discrepancy.
func (m *Metrics) SetTankLevel(id int64, name string, level, discrepancy float64) {
	if m == nil {
		return
	}
	label := strconv.FormatInt(id, 10)
	m.tankLevel.WithLabelValues(label, name).Set(level)
	m.tankDiscrepancy.WithLabelValues(label, name).Set(discrepancy)
}

// ResetTankLevels drops all per-machine series, so deleted machines vanish.
func (m *Metrics) ResetTankLevels() {
	if m == nil {
		return
	}
	m.tankLevel.Reset()
	m.tankDiscrepancy.Reset()
}

// SetStoreUp records the outcome of a store check.
func (m *Metrics) SetStoreUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.storeUp.Set(1)
		return
	}
	m.storeUp.Set(0)
}
