// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証イベントの結果ラベル値。
const (
	ResultSuccess         = "success"
	ResultInvalid         = "invalid"          // 認証情報不一致・検証エラー
	ResultPending         = "pending_approval" // 承認待ち
	ResultConflict        = "conflict"         // メールアドレス重複
	ResultUpstreamFailure = "upstream_failure" // CMS・Instagram側の失敗
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordSignup(result string)
	RecordLogin(result string)
	RecordOAuthCallback(result string)
	RecordSessionsPruned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups        *prometheus.CounterVec
	logins         *prometheus.CounterVec
	oauthCallbacks *prometheus.CounterVec
	sessionsPruned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scharade_signups_total",
			Help: "会員登録の結果別合計数",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scharade_logins_total",
			Help: "ログインの結果別合計数",
		}, []string{"result"}),
		oauthCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scharade_oauth_callbacks_total",
			Help: "Instagram OAuthコールバックの結果別合計数",
		}, []string{"result"}),
		sessionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scharade_sessions_pruned_total",
			Help: "遅延プルーニングで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.signups,
		c.logins,
		c.oauthCallbacks,
		c.sessionsPruned,
	)

	return c
}

// RecordSignup は会員登録の結果を記録する。
func (c *Collector) RecordSignup(result string) {
	c.signups.WithLabelValues(result).Inc()
}

// RecordLogin はログインの結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordOAuthCallback はInstagram OAuthコールバックの結果を記録する。
func (c *Collector) RecordOAuthCallback(result string) {
	c.oauthCallbacks.WithLabelValues(result).Inc()
}

// RecordSessionsPruned はプルーニングされたセッション数を記録する。
func (c *Collector) RecordSessionsPruned(count int) {
	c.sessionsPruned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
