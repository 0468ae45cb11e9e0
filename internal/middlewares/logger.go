package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}

// AuditLogger emits one structured entry per request: endpoint, method,
// status, latency, response size, rider id and a coarse action name.
func AuditLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			responseData := &responseData{
				status: 0,
				size:   0,
			}
			lw := loggingResponseWriter{
				ResponseWriter: w,
				responseData:   responseData,
			}

			h.ServeHTTP(&lw, r)

			duration := time.Since(start)

			log.WithFields(logrus.Fields{
				"uri":      r.RequestURI,
				"method":   r.Method,
				"status":   responseData.status,
				"duration": duration,
				"size":     responseData.size,
				"rider":    RiderID(r.Context()),
				"action":   actionName(r.URL.Path, r.Method),
			}).Info("request completed")
		})
	}
}

func actionName(path, method string) string {
	switch {
	case strings.Contains(path, "/orders/statistics"):
		return "order_statistics"
	case strings.Contains(path, "/orders/recent"):
		return "recent_orders"
	case strings.Contains(path, "/orders/search"):
		return "search_orders"
	case strings.Contains(path, "/orders/range"):
		return "orders_by_range"
	case strings.HasSuffix(path, "/status") && method == http.MethodPatch:
		return "update_order_status"
	case strings.Contains(path, "/orders"):
		return "get_orders"
	case strings.Contains(path, "/income/trend"):
		return "income_trend"
	case strings.Contains(path, "/income"):
		return "realtime_income"
	case strings.Contains(path, "/withdrawals") && method == http.MethodPost:
		return "submit_withdrawal"
	case strings.Contains(path, "/withdrawals") && method == http.MethodPatch:
		return "resolve_withdrawal"
	case strings.Contains(path, "/withdrawals"):
		return "list_withdrawals"
	}
	return "unknown"
}
