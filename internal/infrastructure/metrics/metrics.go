package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plant-monitor/internal/domain/entity"
)

// Metrics счётчики сервиса на собственном реестре
type Metrics struct {
	registry *prometheus.Registry

	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	sweeps        prometheus.Counter
	sweepPlants   prometheus.Histogram
	writeFailures prometheus.Counter
	queueDepth    prometheus.Gauge
	rejected      *prometheus.CounterVec
	triggers      *prometheus.CounterVec
}

// New регистрирует метрики
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_monitor_scans_total",
			Help: "Completed plant scans by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plant_monitor_scan_duration_seconds",
			Help:    "Wall time of one plant scan including the status write.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plant_monitor_sweeps_total",
			Help: "Completed sweeps over allow-listed plants.",
		}),
		sweepPlants: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plant_monitor_sweep_plants",
			Help:    "Plants scanned per sweep.",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plant_monitor_status_write_failures_total",
			Help: "Terminal status writes that failed after retries.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plant_monitor_queue_depth",
			Help: "Tasks waiting for the scan worker.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_monitor_tasks_rejected_total",
			Help: "Tasks dropped because the scan queue was full.",
		}, []string{"source"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_monitor_triggers_total",
			Help: "Trigger signals by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.scans, m.scanDuration, m.sweeps, m.sweepPlants, m.writeFailures,
		m.queueDepth, m.rejected, m.triggers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveScan учитывает завершённое сканирование
func (m *Metrics) ObserveScan(r entity.ScanResult) {
	m.scans.WithLabelValues(string(r.Outcome.Kind)).Inc()
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		m.scanDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	}
	if r.WriteErr != nil {
		m.writeFailures.Inc()
	}
}

// ObserveSweep учитывает завершённый обход
func (m *Metrics) ObserveSweep(scanned int) {
	m.sweeps.Inc()
	m.sweepPlants.Observe(float64(scanned))
}

// SetQueueDepth текущая длина очереди
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// TaskRejected задача не поместилась в очередь
func (m *Metrics) TaskRejected(source string) {
	m.rejected.WithLabelValues(source).Inc()
}

// TriggerReceived получен сигнал из базы
func (m *Metrics) TriggerReceived(kind string) {
	m.triggers.WithLabelValues(kind).Inc()
}

// Registry реестр для тестов и дополнительных коллекторов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP-обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
