// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSignup()
	RecordOTPIssued()
	RecordOTPRedeem(result string)
	RecordGatekeeperDecision(decision string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess prometheus.Counter
	loginFailure prometheus.Counter
	signups      prometheus.Counter
	otpIssued    prometheus.Counter
	otpRedeem    *prometheus.CounterVec
	gatekeeper   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heimdall_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heimdall_login_failure_total",
			Help: "ログイン失敗の合計数",
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heimdall_signup_total",
			Help: "ユーザー登録の合計数",
		}),
		otpIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heimdall_otp_issued_total",
			Help: "発行されたワンタイムパスワードの合計数",
		}),
		otpRedeem: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heimdall_otp_redeem_total",
			Help: "ワンタイムパスワード消費試行の結果別合計数",
		}, []string{"result"}),
		gatekeeper: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heimdall_gatekeeper_decisions_total",
			Help: "ゲートキーパーの判定結果別合計数",
		}, []string{"decision"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFailure,
		c.signups,
		c.otpIssued,
		c.otpRedeem,
		c.gatekeeper,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
// 原因（未知のメール・パスワード不一致）はラベルに含めない。
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// RecordSignup はユーザー登録を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordOTPIssued はワンタイムパスワードの発行を記録する。
func (c *Collector) RecordOTPIssued() {
	c.otpIssued.Inc()
}

// RecordOTPRedeem はワンタイムパスワード消費試行の結果を記録する。
// resultはsuccess, not_found, expired, already_consumed, code_mismatchのいずれか。
func (c *Collector) RecordOTPRedeem(result string) {
	c.otpRedeem.WithLabelValues(result).Inc()
}

// RecordGatekeeperDecision はゲートキーパーの判定結果を記録する。
func (c *Collector) RecordGatekeeperDecision(decision string) {
	c.gatekeeper.WithLabelValues(decision).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
