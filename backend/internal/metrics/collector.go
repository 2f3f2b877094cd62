package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Collector collects request and inference metrics.
type Collector struct {
	totalRequests      prometheus.Counter
	successfulRequests prometheus.Counter
	failedRequests     prometheus.Counter
	responseTime       prometheus.Histogram

	cpuUsage    prometheus.Gauge
	memoryUsage prometheus.Gauge

	// ML Metrics Tracking
	mlInferenceTime prometheus.Histogram
	mlPredictions   prometheus.Counter
	mlErrors        prometheus.Counter
	topLabels       *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	modelDownloads  prometheus.Counter
}

var (
	collectorInstance *Collector
	once              sync.Once
)

// NewCollector initializes and returns a new Collector (singleton).
func NewCollector() *Collector {
	once.Do(func() {
		collectorInstance = &Collector{
			totalRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "http_total_requests",
				Help: "Total number of HTTP requests",
			}),
			successfulRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "http_successful_requests",
				Help: "Number of successful HTTP requests",
			}),
			failedRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "http_failed_requests",
				Help: "Number of failed HTTP requests",
			}),
			responseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "http_response_time_seconds",
				Help:    "Histogram of response times",
				Buckets: prometheus.DefBuckets,
			}),
			cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "host_cpu_usage",
				Help: "Host CPU usage percentage at the last health check",
			}),
			memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "host_memory_usage",
				Help: "Host memory usage percentage at the last health check",
			}),
			mlInferenceTime: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "ml_inference_time_seconds",
				Help:    "Histogram of ML model inference times",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			}),
			mlPredictions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ml_predictions_total",
				Help: "Total number of ML model predictions",
			}),
			mlErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ml_errors_total",
				Help: "Total number of ML model errors",
			}),
			topLabels: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ml_top_label_total",
				Help: "Number of classifications won by each label",
			}, []string{"label"}),
			cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ml_cache_hits_total",
				Help: "Classifications answered from the prediction cache",
			}),
			cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ml_cache_misses_total",
				Help: "Classifications that required inference",
			}),
			modelDownloads: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "model_downloads_total",
				Help: "Number of times the model artifact was fetched",
			}),
		}

		prometheus.MustRegister(
			collectorInstance.totalRequests,
			collectorInstance.successfulRequests,
			collectorInstance.failedRequests,
			collectorInstance.responseTime,

			collectorInstance.cpuUsage,
			collectorInstance.memoryUsage,

			collectorInstance.mlInferenceTime,
			collectorInstance.mlPredictions,
			collectorInstance.mlErrors,
			collectorInstance.topLabels,
			collectorInstance.cacheHits,
			collectorInstance.cacheMisses,
			collectorInstance.modelDownloads,
		)
	})

	return collectorInstance
}

// RecordRequest records a request's outcome and latency.
func (c *Collector) RecordRequest(success bool, duration time.Duration) {
	c.totalRequests.Inc()
	if success {
		c.successfulRequests.Inc()
	} else {
		c.failedRequests.Inc()
	}
	c.responseTime.Observe(duration.Seconds())
}

// RecordMLInference records ML inference time
func (c *Collector) RecordMLInference(duration time.Duration) {
	c.mlInferenceTime.Observe(duration.Seconds())
	c.mlPredictions.Inc()
}

// RecordMLError increments the ML error counter
func (c *Collector) RecordMLError() {
	c.mlErrors.Inc()
}

// RecordTopLabel counts the winning label of a classification.
func (c *Collector) RecordTopLabel(label string) {
	c.topLabels.WithLabelValues(label).Inc()
}

// RecordCacheHit counts a classification served from the cache.
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss counts a classification that had to run inference.
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordModelDownload counts a fetch of the model artifact.
func (c *Collector) RecordModelDownload() {
	c.modelDownloads.Inc()
}

// RecordSystemUsage stores the latest host cpu and memory percentages.
func (c *Collector) RecordSystemUsage(cpuPercent, memPercent float64) {
	c.cpuUsage.Set(clamp(cpuPercent, 0, 100))
	c.memoryUsage.Set(clamp(memPercent, 0, 100))
}

// Helper function to clamp values between min and max
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// GetCurrentCPUUsage returns the last recorded host CPU usage.
func (c *Collector) GetCurrentCPUUsage() float64 {
	return gaugeValue(c.cpuUsage)
}

// GetCurrentMemoryUsage returns the last recorded host memory usage.
func (c *Collector) GetCurrentMemoryUsage() float64 {
	return gaugeValue(c.memoryUsage)
}

// PredictionCount returns the number of inferences run so far.
func (c *Collector) PredictionCount() float64 {
	return counterValue(c.mlPredictions)
}

// ErrorCount returns the number of failed classifications so far.
func (c *Collector) ErrorCount() float64 {
	return counterValue(c.mlErrors)
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	if m.Gauge != nil {
		return m.Gauge.GetValue()
	}
	return 0
}

func counterValue(cnt prometheus.Counter) float64 {
	var m dto.Metric
	if err := cnt.Write(&m); err != nil {
		return 0
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return 0
}
