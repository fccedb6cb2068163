// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する。
// listing.Metrics、category.Metricsおよびミドルウェアの記録先として使う。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	listingQuery     prometheus.Histogram
	listingResults   prometheus.Histogram
	listingMutations *prometheus.CounterVec
	categoryCreated  prometheus.Counter
	categoryFailed   prometheus.Counter
}

// NewCollector はCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmsconnect_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmsconnect_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		listingQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farmsconnect_listing_query_duration_seconds",
			Help:    "出品検索クエリの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		listingResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farmsconnect_listing_query_results",
			Help:    "出品検索1回あたりの件数",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		}),
		listingMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmsconnect_listing_mutations_total",
			Help: "出品の作成・更新・削除の件数",
		}, []string{"op"}),
		categoryCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmsconnect_category_created_total",
			Help: "一括登録で作成されたカテゴリの合計数",
		}),
		categoryFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmsconnect_category_failed_total",
			Help: "一括登録で失敗したカテゴリの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.listingQuery,
		c.listingResults,
		c.listingMutations,
		c.categoryCreated,
		c.categoryFailed,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordHTTPLatency(method string, d time.Duration) {
	c.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveListingQuery は出品検索の所要時間と件数を記録する。
func (c *Collector) ObserveListingQuery(d time.Duration, results int) {
	c.listingQuery.Observe(d.Seconds())
	c.listingResults.Observe(float64(results))
}

// IncListingMutation は出品の変更操作を記録する。
func (c *Collector) IncListingMutation(op string) {
	c.listingMutations.WithLabelValues(op).Inc()
}

// AddCategoryIngest は一括登録の結果を記録する。
func (c *Collector) AddCategoryIngest(created, failed int) {
	c.categoryCreated.Add(float64(created))
	c.categoryFailed.Add(float64(failed))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
