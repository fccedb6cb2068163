package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics はHTTPレスポンスの計測インターフェース。
type HTTPMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(method string, d time.Duration)
}

// NewMetricsMiddleware はレスポンスのステータスコードと処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(m HTTPMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			m.RecordHTTPStatus(rec.statusCode)
			m.RecordHTTPLatency(r.Method, time.Since(start))
		})
	}
}
