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
// 上流クライアントやスナップショットビルダーから利用する。
type MetricsCollector interface {
	RecordRefreshSuccess(duration time.Duration)
	RecordRefreshFailure(duration time.Duration)
	RecordStageFailure(stage string)
	RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration)
	RecordSnapshot(users, posts, comments int, publishedAt time.Time)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	refreshSuccess    prometheus.Counter
	refreshFail       prometheus.Counter
	refreshLatency    prometheus.Histogram
	stageFailures     *prometheus.CounterVec
	upstreamRequests  *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	snapshotEntities  *prometheus.GaugeVec
	snapshotPublished prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialpulse_refresh_success_total",
			Help: "スナップショット更新成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialpulse_refresh_fail_total",
			Help: "スナップショット更新失敗の合計数",
		}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "socialpulse_refresh_duration_seconds",
			Help:    "フェッチパス全体の所要時間（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialpulse_stage_task_failures_total",
			Help: "ステージ別の個別タスク失敗数（空データとして扱われたもの）",
		}, []string{"stage"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialpulse_upstream_requests_total",
			Help: "上流エンドポイント・ステータスコード別のリクエスト数",
		}, []string{"endpoint", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialpulse_upstream_latency_seconds",
			Help:    "上流リクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		snapshotEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "socialpulse_snapshot_entities",
			Help: "公開中スナップショットに含まれる件数",
		}, []string{"kind"}),
		snapshotPublished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socialpulse_snapshot_published_timestamp_seconds",
			Help: "最後にスナップショットを公開したUNIX時刻",
		}),
	}

	reg.MustRegister(
		c.refreshSuccess,
		c.refreshFail,
		c.refreshLatency,
		c.stageFailures,
		c.upstreamRequests,
		c.upstreamLatency,
		c.snapshotEntities,
		c.snapshotPublished,
	)

	return c
}

// RecordRefreshSuccess はフェッチパス成功を記録する。
func (c *Collector) RecordRefreshSuccess(duration time.Duration) {
	c.refreshSuccess.Inc()
	c.refreshLatency.Observe(duration.Seconds())
}

// RecordRefreshFailure はフェッチパス失敗を記録する。
func (c *Collector) RecordRefreshFailure(duration time.Duration) {
	c.refreshFail.Inc()
	c.refreshLatency.Observe(duration.Seconds())
}

// RecordStageFailure はステージ内の個別タスク失敗を記録する。
func (c *Collector) RecordStageFailure(stage string) {
	c.stageFailures.WithLabelValues(stage).Inc()
}

// RecordUpstreamRequest は上流リクエストのステータスコードとレイテンシを記録する。
// トランスポートエラーの場合statusCodeは0で、ラベルは"error"になる。
func (c *Collector) RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	label := "error"
	if statusCode > 0 {
		label = strconv.Itoa(statusCode)
	}
	c.upstreamRequests.WithLabelValues(endpoint, label).Inc()
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSnapshot は公開したスナップショットの件数と時刻を記録する。
func (c *Collector) RecordSnapshot(users, posts, comments int, publishedAt time.Time) {
	c.snapshotEntities.WithLabelValues("users").Set(float64(users))
	c.snapshotEntities.WithLabelValues("posts").Set(float64(posts))
	c.snapshotEntities.WithLabelValues("comments").Set(float64(comments))
	c.snapshotPublished.Set(float64(publishedAt.Unix()))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
