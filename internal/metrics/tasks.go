package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务结果标签。
const (
	ResultOK      = "ok"
	ResultRetry   = "retry"
	ResultDropped = "dropped"
)

var (
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "已处理的任务数，result 为 ok、retry 或 dropped。",
		},
		[]string{"task_type", "result"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "单次任务处理耗时（秒）。",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 90},
		},
		[]string{"task_type"},
	)

	tasksInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_in_flight",
			Help:      "正在处理的任务数。",
		},
		[]string{"task_type"},
	)

	exportBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "pdf_bytes",
			Help:      "生成的 PDF 大小（字节）。",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 8),
		},
	)
)

// TaskResult 把处理错误归类为结果标签。SkipRetry 表示任务不会再执行。
func TaskResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, asynq.SkipRetry):
		return ResultDropped
	default:
		return ResultRetry
	}
}

// AsynqMetricsMiddleware 按任务类型记录处理结果与耗时。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			tasksInFlight.WithLabelValues(taskType).Inc()
			start := time.Now()

			err := next.ProcessTask(ctx, task)

			tasksInFlight.WithLabelValues(taskType).Dec()
			taskDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			tasksTotal.WithLabelValues(taskType, TaskResult(err)).Inc()
			return err
		})
	}
}

// ObserveExportSize 记录一份导出 PDF 的大小。
func ObserveExportSize(n int) {
	exportBytes.Observe(float64(n))
}
