// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordChirpOperation(operation string)
	RecordAuthorizationDenied(action string)
	RecordValidationFailure(form string)
	RecordLoginAttempt(method string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	chirpOps       *prometheus.CounterVec
	authzDenied    *prometheus.CounterVec
	validationFail *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chirpOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_chirp_operations_total",
			Help: "成功したチャープ操作（create, update, delete）の合計数",
		}, []string{"operation"}),
		authzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_authorization_denied_total",
			Help: "ポリシーにより拒否された操作の合計数",
		}, []string{"action"}),
		validationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_validation_failures_total",
			Help: "フォーム入力の検証失敗の合計数",
		}, []string{"form"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_login_attempts_total",
			Help: "ログイン試行の合計数",
		}, []string{"method", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirper_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chirper_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.chirpOps,
		c.authzDenied,
		c.validationFail,
		c.loginAttempts,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordChirpOperation は成功したチャープ操作を記録する。
func (c *Collector) RecordChirpOperation(operation string) {
	c.chirpOps.WithLabelValues(operation).Inc()
}

// RecordAuthorizationDenied はポリシーによる拒否を記録する。
func (c *Collector) RecordAuthorizationDenied(action string) {
	c.authzDenied.WithLabelValues(action).Inc()
}

// RecordValidationFailure は検証失敗を記録する。
func (c *Collector) RecordValidationFailure(form string) {
	c.validationFail.WithLabelValues(form).Inc()
}

// RecordLoginAttempt はログイン試行を記録する。methodは password または google。
func (c *Collector) RecordLoginAttempt(method string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.loginAttempts.WithLabelValues(method, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
