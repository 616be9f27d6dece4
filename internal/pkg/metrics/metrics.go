// Package metrics 定義服務使用的 Prometheus 指標與抓取端點
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服務所有 Prometheus 指標
//
// 所有方法在 nil 接收者上皆為 no-op，停用指標時可直接傳 nil。
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RecommendTotal       *prometheus.CounterVec
	RecommendResults     prometheus.Histogram
	CandidatesFiltered   prometheus.Histogram
	UpstreamRequests     *prometheus.CounterVec
	UpstreamLatency      *prometheus.HistogramVec
	CacheLookups         *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
	IndexDocuments       prometheus.Gauge
}

// New 建立並註冊所有指標到獨立的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RecommendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommend_requests_total",
				Help: "Recommendation requests by outcome (ok, empty, error).",
			},
			[]string{"outcome"},
		),
		RecommendResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommend_results_count",
				Help:    "Number of recipes returned per recommendation.",
				Buckets: []float64{0, 1, 2, 3},
			},
		),
		CandidatesFiltered: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommend_candidates_filtered",
				Help:    "Semantic candidates dropped by the ingredient overlap filter.",
				Buckets: []float64{0, 5, 10, 15, 20},
			},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "External API calls by upstream and status (ok, error, rejected).",
			},
			[]string{"upstream", "status"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_latency_seconds",
				Help:    "External API call latency in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"upstream"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embedding_cache_lookups_total",
				Help: "Embedding cache lookups by tier (memory, redis) and result (hit, miss).",
			},
			[]string{"tier", "result"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recipe_index_documents",
				Help: "Number of recipe documents in the loaded index.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RecommendTotal,
		m.RecommendResults,
		m.CandidatesFiltered,
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.CacheLookups,
		m.CircuitBreakerState,
		m.IndexDocuments,
	)

	return m
}

// Handler 回傳 Prometheus 抓取用的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 取得底層 registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP 記錄一次 HTTP 請求
func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// InFlight 調整處理中請求數
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Add(delta)
}

// ObserveRecommend 記錄推薦結果；err 不為 nil 時只計 error
func (m *Metrics) ObserveRecommend(candidates, results int, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.RecommendTotal.WithLabelValues("error").Inc()
		return
	case results == 0:
		m.RecommendTotal.WithLabelValues("empty").Inc()
	default:
		m.RecommendTotal.WithLabelValues("ok").Inc()
	}
	m.RecommendResults.Observe(float64(results))
	m.CandidatesFiltered.Observe(float64(candidates - results))
}

// ObserveUpstream 記錄外部服務呼叫
func (m *Metrics) ObserveUpstream(upstream, status string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(upstream, status).Inc()
	if status != "rejected" {
		m.UpstreamLatency.WithLabelValues(upstream).Observe(seconds)
	}
}

// ObserveCache 記錄快取查詢
func (m *Metrics) ObserveCache(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

// SetBreakerState 設定斷路器狀態
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}

// SetIndexDocuments 設定索引文件數
func (m *Metrics) SetIndexDocuments(n int) {
	if m == nil {
		return
	}
	m.IndexDocuments.Set(float64(n))
}
