// Package metrics 暴露控制台的 Prometheus 指标（独立 registry）。
// 所有方法对 nil 接收者安全，未启用指标时调用方无需判空。
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medconsole"

// Metrics 指标集合
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	upstreamRequests    *prometheus.CounterVec
	upstreamDuration    *prometheus.HistogramVec
	bulkDeleteItems     *prometheus.CounterVec
	normalizeDropped    *prometheus.CounterVec
	liveSessions        prometheus.Gauge
}

// New 创建并注册全部指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests served by the console API",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests served by the console API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Count of requests sent to the upstream REST API by outcome",
		}, []string{"method", "path", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream REST API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		bulkDeleteItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_delete_items_total",
			Help:      "Per-item outcomes of bulk delete operations",
		}, []string{"resource", "outcome"}),
		normalizeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_dropped_records_total",
			Help:      "Upstream records rejected during normalization",
		}, []string{"resource"}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_list_sessions",
			Help:      "Open live list websocket sessions",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.upstreamRequests,
		m.upstreamDuration,
		m.bulkDeleteItems,
		m.normalizeDropped,
		m.liveSessions,
	)
	return m
}

// ObserveHTTPRequest 记录一次 HTTP 请求；path 使用路由模板
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveUpstream 记录一次上游请求，实现 apiclient.Observer
func (m *Metrics) ObserveUpstream(method, path, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	path = templatePath(path)
	m.upstreamRequests.WithLabelValues(method, path, outcome).Inc()
	m.upstreamDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveBulkDelete 记录批量删除逐条结果
func (m *Metrics) ObserveBulkDelete(resource string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.bulkDeleteItems.WithLabelValues(resource, "success").Add(float64(succeeded))
	m.bulkDeleteItems.WithLabelValues(resource, "failure").Add(float64(failed))
}

// ObserveDropped 记录规范化阶段被丢弃的记录数
func (m *Metrics) ObserveDropped(resource string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.normalizeDropped.WithLabelValues(resource).Add(float64(n))
}

// LiveSessionOpened 实时列表连接数 +1
func (m *Metrics) LiveSessionOpened() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

// LiveSessionClosed 实时列表连接数 -1
func (m *Metrics) LiveSessionClosed() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}

// Handler 暴露 registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// templatePath 将数字路径段替换为 :id，避免标签基数膨胀
func templatePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
