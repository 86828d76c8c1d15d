// Package metrics 后台任务的 prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var SyncEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jobhub",
	Subsystem: "index_sync",
	Name:      "events",
	Help:      "索引同步处理的 outbox 事件数，按结果区分",
}, []string{"target_type", "result"})

var SyncOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jobhub",
	Subsystem: "index_sync",
	Name:      "index_outcomes",
	Help:      "搜索索引写入结果",
}, []string{"target_type", "outcome"})

var SyncDeadLetters = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jobhub",
	Subsystem: "index_sync",
	Name:      "dead_letters",
	Help:      "达到重试上限的事件数",
}, []string{"target_type"})

var SyncBatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "jobhub",
	Subsystem: "index_sync",
	Name:      "batch_duration_seconds",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
}, []string{"target_type"})

var CounterFlushed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jobhub",
	Subsystem: "counter_cache",
	Name:      "flushed_total",
	Help:      "写入存储的计数增量",
}, []string{"target_type", "column"})

var CounterFlushFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jobhub",
	Subsystem: "counter_cache",
	Name:      "flush_failures",
}, []string{"target_type", "column"})

var TaskRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jobhub",
	Subsystem: "scheduler",
	Name:      "task_runs",
	Help:      "调度任务执行次数，按结果区分（ok/error/timeout/skipped/locked）",
}, []string{"task", "result"})

var TaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "jobhub",
	Subsystem: "scheduler",
	Name:      "task_duration_seconds",
	Buckets:   prometheus.DefBuckets,
}, []string{"task"})

// Register 注册全部指标
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SyncEvents,
		SyncOutcomes,
		SyncDeadLetters,
		SyncBatchDuration,
		CounterFlushed,
		CounterFlushFailures,
		TaskRuns,
		TaskDuration,
	)
}
