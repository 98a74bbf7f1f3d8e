package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TierMetrics 等级与资格流水线指标
type TierMetrics struct {
	// 校验相关指标
	ValidatorRecordsTotal *prometheus.CounterVec // 校验记录数（按结果 valid/invalid）
	DispatchTotal         *prometheus.CounterVec // 校验后批次移交次数（按结果）

	// 决策相关指标
	DecisionTotal    *prometheus.CounterVec   // 决策写入数（按类型、结果）
	NotifyTotal      *prometheus.CounterVec   // 通知发送数（按类型、结果）
	TierAssigned     *prometheus.CounterVec   // 等级分布
	BatchDuration    *prometheus.HistogramVec // 批次处理耗时（按阶段）
	BatchSize        *prometheus.HistogramVec // 批次大小（按阶段）
	AggregatedTotals prometheus.Gauge         // 最近一次汇总的客户数

	// 分布式锁相关指标
	LockAcquireTotal *prometheus.CounterVec // 锁获取总数（按结果）
}

// NewTierMetrics 创建指标（注册到默认 registry，进程内只应调用一次）
func NewTierMetrics() *TierMetrics {
	return &TierMetrics{
		ValidatorRecordsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_validator_records_total",
				Help: "Total number of raw transaction payloads seen by the validator",
			},
			[]string{"result"}, // result: valid/invalid
		),
		DispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_dispatch_total",
				Help: "Total number of validated batches handed off to the rules engine",
			},
			[]string{"result"},
		),
		DecisionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_decision_total",
				Help: "Total number of decisions written",
			},
			[]string{"kind", "result"}, // kind: eligibility/tier
		),
		NotifyTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_notify_total",
				Help: "Total number of notifications published",
			},
			[]string{"kind", "result"},
		),
		TierAssigned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_assigned_total",
				Help: "Total number of tier assignments by tier",
			},
			[]string{"tier"},
		),
		BatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tier_batch_duration_seconds",
				Help:    "Duration of batch processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"}, // stage: validate/apply/aggregate/process
		),
		BatchSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tier_batch_size",
				Help:    "Number of records per batch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"stage"},
		),
		AggregatedTotals: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tier_aggregated_customers",
				Help: "Number of customers produced by the latest aggregation run",
			},
		),
		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_lock_acquire_total",
				Help: "Total number of aggregate lock acquisition attempts",
			},
			[]string{"result"},
		),
	}
}

// 全局指标实例
var (
	defaultMetrics *TierMetrics
	once           sync.Once
)

// GetMetrics 获取全局指标实例
func GetMetrics() *TierMetrics {
	once.Do(func() {
		defaultMetrics = NewTierMetrics()
	})
	return defaultMetrics
}
