package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// BuildsTotal построения моделей по исходу
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrc_model_builds_total",
			Help: "Total number of model builds by outcome",
		},
		[]string{"outcome"},
	)

	// BuildDuration длительность построения модели устройства
	BuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rrc_model_build_duration_seconds",
			Help:    "Model build duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// NetworksSkipped сети без модели из-за недостатка данных
	NetworksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rrc_networks_skipped_total",
			Help: "Total number of (device, network) pairs without enough data for a model",
		},
	)

	// SegmentsWritten записанные сегменты (пары)
	SegmentsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rrc_segments_written_total",
			Help: "Total number of labeled segment pairs written",
		},
	)

	// LabelsAssigned метки по имени
	LabelsAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrc_labels_assigned_total",
			Help: "Total number of segment labels assigned",
		},
		[]string{"label"},
	)

	// QueueSize размер очереди построения
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rrc_build_queue_size",
			Help: "Current size of the build queue",
		},
	)

	// ActiveBuilds построения в работе
	ActiveBuilds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rrc_active_builds",
			Help: "Number of builds currently running",
		},
	)

	// RedisOperations операции с Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	// TriggersConsumed сообщения из очереди триггеров
	TriggersConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrc_triggers_consumed_total",
			Help: "Total number of build trigger messages consumed",
		},
		[]string{"status"},
	)
)

// RedisResult учитывает исход операции с Redis
func RedisResult(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RedisOperations.WithLabelValues(operation, status).Inc()
}
