// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthRecorder は認証系メトリクス収集のインターフェース。
// ハンドラー層から利用する。
type AuthRecorder interface {
	// RecordAuthOutcome はregister/login/oauthの結果を記録する。
	// resultは"success"またはエラーコード。
	RecordAuthOutcome(operation, result string)
	// RecordVerifyResult はセッション検証の結果を記録する。
	// resultは"valid"または失敗コード（SESSION_NOT_FOUND等）。
	RecordVerifyResult(result string)
	// RecordHTTPStatus はHTTPステータスコードを記録する。
	RecordHTTPStatus(statusCode int)
	// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authOutcome    *prometheus.CounterVec
	verifyResult   *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	sessionsSwept  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_outcome_total",
			Help: "認証操作（register/login/oauth）の結果別の合計数",
		}, []string{"operation", "result"}),
		verifyResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_session_verify_total",
			Help: "セッション検証の結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_sessions_swept_total",
			Help: "掃除ジョブが削除した期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.authOutcome,
		c.verifyResult,
		c.httpStatus,
		c.requestLatency,
		c.sessionsSwept,
	)

	return c
}

// RecordAuthOutcome は認証操作の結果を記録する。
func (c *Collector) RecordAuthOutcome(operation, result string) {
	c.authOutcome.WithLabelValues(operation, result).Inc()
}

// RecordVerifyResult はセッション検証の結果を記録する。
func (c *Collector) RecordVerifyResult(result string) {
	c.verifyResult.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsSwept は掃除ジョブが削除したセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop は何も記録しないAuthRecorder。テストおよびメトリクス無効時用。
type Noop struct{}

func (Noop) RecordAuthOutcome(_, _ string)        {}
func (Noop) RecordVerifyResult(_ string)          {}
func (Noop) RecordHTTPStatus(_ int)               {}
func (Noop) RecordRequestLatency(_ time.Duration) {}

// compile-time interface checks
var _ AuthRecorder = (*Collector)(nil)
var _ AuthRecorder = Noop{}
