// Package metrics 定义服务与 worker 暴露的 Prometheus 指标。
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smartresume"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求数，按路由模板与状态码类别区分。",
		},
		[]string{"method", "route", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时（秒）。文本生成接口通常落在高位桶。",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "websocket_connections",
			Help:      "当前打开的通知 WebSocket 连接数。",
		},
	)
)

// GinMiddleware 记录每个请求。未匹配的路由记为 "unmatched"，避免任意 URL 进入标签。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		requestsTotal.WithLabelValues(method, route, StatusClass(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// StatusClass 把状态码折叠为 "2xx" 这样的类别。
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// TrackWebSocket 记录一个连接打开，返回的函数在连接关闭时调用。
func TrackWebSocket() func() {
	wsConnections.Inc()
	return wsConnections.Dec
}
