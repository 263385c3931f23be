package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "文本生成调用次数，按调用类型与结果区分。",
		},
		[]string{"kind", "outcome"},
	)

	aiCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "call_duration_seconds",
			Help:      "文本生成调用耗时（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"kind"},
	)

	aiInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "in_flight_calls",
			Help:      "正在进行的文本生成调用数量。",
		},
		[]string{"kind"},
	)
)

// TrackAICall 记录一次调用开始，返回的函数在调用结束时传入结果。
func TrackAICall(kind string) func(err error) {
	start := time.Now()
	aiInFlight.WithLabelValues(kind).Inc()
	return func(err error) {
		aiInFlight.WithLabelValues(kind).Dec()
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		aiCallsTotal.WithLabelValues(kind, outcome).Inc()
		aiCallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
