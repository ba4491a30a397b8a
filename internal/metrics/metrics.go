// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン方式のラベル値。
const (
	LoginMethodLocal   = "local"
	LoginMethodGoogle  = "google"
	LoginMethodKakao   = "kakao"
	LoginMethodHandoff = "handoff"
)

// 結果のラベル値。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(method, result string)
	RecordTokenRefresh(result string)
	RecordHandoffRedeem(result string)
	RecordNotificationDispatched(delivered bool)
	SSEConnectionOpened()
	SSEConnectionClosed()
	RecordNotificationsSwept(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins             *prometheus.CounterVec
	tokenRefresh       *prometheus.CounterVec
	handoffRedeem      *prometheus.CounterVec
	notifDispatched    *prometheus.CounterVec
	sseConnections     prometheus.Gauge
	notificationsSwept prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "futari_logins_total",
			Help: "ログイン試行の合計数（方式・結果別）",
		}, []string{"method", "result"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "futari_token_refresh_total",
			Help: "トークンリフレッシュ試行の合計数（結果別）",
		}, []string{"result"}),
		handoffRedeem: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "futari_handoff_redeem_total",
			Help: "ハンドオフコード引き換え試行の合計数（結果別）",
		}, []string{"result"}),
		notifDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "futari_notifications_dispatched_total",
			Help: "ディスパッチされた通知の合計数（ライブ配信の成否別）",
		}, []string{"delivered"}),
		sseConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "futari_sse_active_connections",
			Help: "アクティブなSSE接続数",
		}),
		notificationsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "futari_notifications_swept_total",
			Help: "保持期間超過で削除された既読通知の合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.tokenRefresh,
		c.handoffRedeem,
		c.notifDispatched,
		c.sseConnections,
		c.notificationsSwept,
	)

	return c
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(method, result string) {
	c.logins.WithLabelValues(method, result).Inc()
}

// RecordTokenRefresh はトークンリフレッシュ試行を記録する。
func (c *Collector) RecordTokenRefresh(result string) {
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// RecordHandoffRedeem はハンドオフコード引き換え試行を記録する。
func (c *Collector) RecordHandoffRedeem(result string) {
	c.handoffRedeem.WithLabelValues(result).Inc()
}

// RecordNotificationDispatched は通知のディスパッチを記録する。
// deliveredはライブ配信に成功したかを示す（永続化は常に行われる）。
func (c *Collector) RecordNotificationDispatched(delivered bool) {
	label := "false"
	if delivered {
		label = "true"
	}
	c.notifDispatched.WithLabelValues(label).Inc()
}

// SSEConnectionOpened はSSE接続の確立を記録する。
func (c *Collector) SSEConnectionOpened() {
	c.sseConnections.Inc()
}

// SSEConnectionClosed はSSE接続の切断を記録する。
func (c *Collector) SSEConnectionClosed() {
	c.sseConnections.Dec()
}

// RecordNotificationsSwept は保持期間超過で削除された通知数を記録する。
func (c *Collector) RecordNotificationsSwept(count int) {
	c.notificationsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが/metricsにマウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
