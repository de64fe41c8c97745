// Package metrics は上流APIへの転送結果をPrometheus形式で公開する。
//
// 401/403を502に変換するとクライアントからは上流の認証エラーが見えなくなるため、
// 実際の上流ステータスをここで数え、運用側が検知できるようにする。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minutes_gateway"

// Metrics はゲートウェイのメトリクス一式。
type Metrics struct {
	registry *prometheus.Registry

	responses  *prometheus.CounterVec
	translated *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New は専用のレジストリにメトリクスを登録して返す。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_responses_total",
			Help:      "上流APIから受け取ったレスポンス数（上流の実ステータス別）",
		}, []string{"upstream", "code"}),
		translated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_status_translations_total",
			Help:      "クライアントへ返す前にステータスを変換した回数",
		}, []string{"upstream", "from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "上流APIへの転送が失敗または中断した回数",
		}, []string{"upstream", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_response_header_seconds",
			Help:      "上流APIのレスポンスヘッダー到着までの時間",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"upstream"}),
	}

	m.registry.MustRegister(
		m.responses,
		m.translated,
		m.failures,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler は /metrics 用のHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveResponse は上流のレスポンスを記録する。
// upstreamStatus とクライアントへ返す status が異なる場合は変換として数える。
func (m *Metrics) ObserveResponse(upstream string, upstreamStatus, status int, elapsed time.Duration) {
	m.responses.WithLabelValues(upstream, strconv.Itoa(upstreamStatus)).Inc()
	m.latency.WithLabelValues(upstream).Observe(elapsed.Seconds())
	if status != upstreamStatus {
		m.translated.WithLabelValues(upstream, strconv.Itoa(upstreamStatus), strconv.Itoa(status)).Inc()
	}
}

// ObserveFailure は上流に到達できなかったことを記録する。
func (m *Metrics) ObserveFailure(upstream, reason string) {
	m.failures.WithLabelValues(upstream, reason).Inc()
}
