package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultNamespace 指标前缀
const DefaultNamespace = "apkscan"

// PrometheusMetrics Prometheus 指标收集器，每个实例使用独立的 Registry
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry

	// HTTP 请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 扫描指标
	scansTotal      *prometheus.CounterVec
	scansInProgress prometheus.Gauge
	scanDuration    *prometheus.HistogramVec
	detectionsTotal *prometheus.CounterVec
	cacheHitsTotal  prometheus.Counter
	rulesLoaded     prometheus.Gauge

	// Worker Pool 指标
	workerPoolSize      prometheus.Gauge
	workerPoolActive    prometheus.Gauge
	workerPoolQueueSize prometheus.Gauge

	// 数据库指标
	dbConnectionsOpen  prometheus.Gauge
	dbConnectionsInUse prometheus.Gauge

	// 外部依赖失败（对象存储、消息队列）
	sideEffectFailures *prometheus.CounterVec
}

// NewPrometheusMetrics 创建 Prometheus 指标收集器
func NewPrometheusMetrics(logger *logrus.Logger, namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		),

		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of APK scans",
			},
			[]string{"source", "status"}, // source: cli/upload/watcher, status: completed/failed
		),
		scansInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scans_in_progress",
				Help:      "Number of scans currently running",
			},
		),
		scanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "APK scan duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		detectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detections_total",
				Help:      "Total number of framework detections",
			},
			[]string{"framework"},
		),
		cacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_hits_total",
				Help:      "Number of scans served from the report cache",
			},
		),
		rulesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "fingerprint_rules",
				Help:      "Number of fingerprint rules in the active catalogue",
			},
		),

		workerPoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_size",
				Help:      "Total number of workers in the pool",
			},
		),
		workerPoolActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_active",
				Help:      "Number of active workers",
			},
		),
		workerPoolQueueSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_queue_size",
				Help:      "Number of files waiting in queue",
			},
		),

		dbConnectionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_open",
				Help:      "Number of open database connections",
			},
		),
		dbConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_in_use",
				Help:      "Number of database connections in use",
			},
		),

		sideEffectFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "side_effect_failures_total",
				Help:      "Failures of optional side effects after a scan",
			},
			[]string{"operation"}, // storage, publish, persist
		),
	}

	logger.Debug("Prometheus metrics initialized")
	return pm
}

// HTTPMiddleware HTTP 请求监控中间件
func (pm *PrometheusMetrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		pm.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		pm.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP Handler
func (pm *PrometheusMetrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{Registry: pm.registry})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Registry 底层 Registry
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// RecordScanStarted 记录扫描开始
func (pm *PrometheusMetrics) RecordScanStarted() {
	pm.scansInProgress.Inc()
}

// RecordScanCompleted 记录扫描成功及检测到的框架
func (pm *PrometheusMetrics) RecordScanCompleted(source string, duration time.Duration, frameworks []string, cached bool) {
	pm.scansInProgress.Dec()
	pm.scansTotal.WithLabelValues(source, "completed").Inc()
	pm.scanDuration.WithLabelValues("completed").Observe(duration.Seconds())
	for _, fw := range frameworks {
		pm.detectionsTotal.WithLabelValues(fw).Inc()
	}
	if cached {
		pm.cacheHitsTotal.Inc()
	}
}

// RecordScanFailed 记录扫描失败
func (pm *PrometheusMetrics) RecordScanFailed(source string, duration time.Duration) {
	pm.scansInProgress.Dec()
	pm.scansTotal.WithLabelValues(source, "failed").Inc()
	pm.scanDuration.WithLabelValues("failed").Observe(duration.Seconds())
}

// RecordSideEffectFailure 记录附带操作失败
func (pm *PrometheusMetrics) RecordSideEffectFailure(operation string) {
	pm.sideEffectFailures.WithLabelValues(operation).Inc()
}

// SetRulesLoaded 更新规则数量
func (pm *PrometheusMetrics) SetRulesLoaded(count int) {
	pm.rulesLoaded.Set(float64(count))
}

// UpdateWorkerPoolStats 更新 Worker Pool 统计
func (pm *PrometheusMetrics) UpdateWorkerPoolStats(size, active, queueSize int) {
	pm.workerPoolSize.Set(float64(size))
	pm.workerPoolActive.Set(float64(active))
	pm.workerPoolQueueSize.Set(float64(queueSize))
}

// UpdateDBStats 更新数据库连接统计
func (pm *PrometheusMetrics) UpdateDBStats(open, inUse int) {
	pm.dbConnectionsOpen.Set(float64(open))
	pm.dbConnectionsInUse.Set(float64(inUse))
}
