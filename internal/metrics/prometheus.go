package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the report dispatcher
type PrometheusMetrics struct {
	// Scheduler tick metrics
	TicksTotal   *prometheus.CounterVec
	TickDuration prometheus.Histogram
	DueReports   prometheus.Gauge

	// Report dispatch metrics
	ReportsDispatchedTotal *prometheus.CounterVec
	ReportDuration         *prometheus.HistogramVec
	RecipientsNotified     prometheus.Counter

	// Integration delivery metrics
	DeliveriesTotal  *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Scheduler tick metrics
		TicksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatcher_ticks_total",
				Help: "Total number of scheduler ticks executed",
			},
			[]string{"status"},
		),

		TickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dispatcher_tick_duration_seconds",
				Help:    "Time spent processing a single scheduler tick",
				Buckets: prometheus.DefBuckets,
			},
		),

		DueReports: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dispatcher_due_reports",
				Help: "Number of reports matched by the most recent tick",
			},
		),

		// Report dispatch metrics
		ReportsDispatchedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatcher_reports_dispatched_total",
				Help: "Total number of scheduled report runs",
			},
			[]string{"frequency", "status"},
		),

		ReportDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatcher_report_duration_seconds",
				Help:    "Time spent running a single scheduled report",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"frequency"},
		),

		RecipientsNotified: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dispatcher_recipients_notified_total",
				Help: "Total number of recipients included in successful report runs",
			},
		),

		// Integration delivery metrics
		DeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatcher_deliveries_total",
				Help: "Total number of webhook and Slack deliveries attempted",
			},
			[]string{"channel", "status"},
		),

		DeliveryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatcher_delivery_duration_seconds",
				Help:    "Duration of webhook and Slack deliveries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),

		// Storage metrics
		DatabaseOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatcher_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatcher_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatcher_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatcher_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dispatcher_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dispatcher_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dispatcher_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dispatcher_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordTick records a completed scheduler tick
func (m *PrometheusMetrics) RecordTick(status string, duration time.Duration, dueCount int) {
	m.TicksTotal.WithLabelValues(status).Inc()
	m.TickDuration.Observe(duration.Seconds())
	m.DueReports.Set(float64(dueCount))
}

// RecordReportDispatched records a single scheduled report run
func (m *PrometheusMetrics) RecordReportDispatched(frequency, status string, duration time.Duration) {
	m.ReportsDispatchedTotal.WithLabelValues(frequency, status).Inc()
	m.ReportDuration.WithLabelValues(frequency).Observe(duration.Seconds())
}

// RecordRecipientsNotified records recipients reached by a successful run
func (m *PrometheusMetrics) RecordRecipientsNotified(count int) {
	m.RecipientsNotified.Add(float64(count))
}

// RecordDelivery records an outbound webhook or Slack delivery
func (m *PrometheusMetrics) RecordDelivery(channel, status string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(channel, status).Inc()
	m.DeliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
