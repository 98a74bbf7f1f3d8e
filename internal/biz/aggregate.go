package biz

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"spend-tier-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// SpendEntry 单笔原始消费，Amount 为原始文本，可能缺失或非数字
type SpendEntry struct {
	CustomerID string
	Amount     string
}

// AggregateRecord 每个客户每次汇总的一条消费总额
type AggregateRecord struct {
	CustomerID   string `json:"customer_id"`
	MonthlySpend int64  `json:"monthly_spend"`
}

// SpendSource 原始消费来源，可分页/分文件逐条回调
type SpendSource interface {
	Each(ctx context.Context, fn func(SpendEntry) error) error
}

// Aggregator 按客户累加消费，只持有每个客户的累计值
type Aggregator struct {
	totals map[string]int64
}

// NewAggregator 创建汇总器
func NewAggregator() *Aggregator {
	return &Aggregator{totals: make(map[string]int64)}
}

// Add 累加一笔金额；负数按 0 处理
func (a *Aggregator) Add(customerID string, amount int64) {
	if customerID == "" {
		return
	}
	if amount < 0 {
		amount = 0
	}
	a.totals[customerID] += amount
}

// AddEntry 累加一笔原始消费，缺失或非数字金额按 0 处理
func (a *Aggregator) AddEntry(e SpendEntry) {
	a.Add(e.CustomerID, ParseAmount(e.Amount))
}

// Merge 合并另一个汇总器的结果，与分批方式无关
func (a *Aggregator) Merge(other *Aggregator) {
	for cid, total := range other.totals {
		a.totals[cid] += total
	}
}

// Len 客户数
func (a *Aggregator) Len() int {
	return len(a.totals)
}

// Records 输出汇总结果（按 customer_id 排序）
func (a *Aggregator) Records() []*AggregateRecord {
	records := make([]*AggregateRecord, 0, len(a.totals))
	for cid, total := range a.totals {
		records = append(records, &AggregateRecord{CustomerID: cid, MonthlySpend: total})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CustomerID < records[j].CustomerID })
	return records
}

// Aggregate 对一组原始消费做按客户求和
func Aggregate(entries []SpendEntry) []*AggregateRecord {
	a := NewAggregator()
	for _, e := range entries {
		a.AddEntry(e)
	}
	return a.Records()
}

// ParseAmount 解析原始金额，缺失、非数字或负数返回 0
func ParseAmount(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// AggregateUseCase 从消费来源汇总客户月度消费
type AggregateUseCase struct {
	source  SpendSource
	log     *log.Helper
	metrics *metrics.TierMetrics
}

// NewAggregateUseCase 创建汇总 UseCase
func NewAggregateUseCase(source SpendSource, logger log.Logger) *AggregateUseCase {
	return &AggregateUseCase{
		source:  source,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Aggregate 遍历整个来源并输出每个客户的消费总额
func (uc *AggregateUseCase) Aggregate(ctx context.Context) ([]*AggregateRecord, error) {
	startTime := time.Now()
	a := NewAggregator()
	var seen int
	err := uc.source.Each(ctx, func(e SpendEntry) error {
		seen++
		a.AddEntry(e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := a.Records()
	if uc.metrics != nil {
		uc.metrics.BatchDuration.WithLabelValues("aggregate").Observe(time.Since(startTime).Seconds())
		uc.metrics.AggregatedTotals.Set(float64(len(records)))
	}
	uc.log.WithContext(ctx).Infof("aggregated %d customers from %d entries", len(records), seen)
	return records, nil
}
