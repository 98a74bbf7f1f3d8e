package biz

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Outcome 单条记录的处理结果
type Outcome int

const (
	// OutcomePersisted 决策已写入（通知已发送或无需通知）
	OutcomePersisted Outcome = iota + 1
	// OutcomeNotificationFailed 决策已写入，但通知失败（降级成功）
	OutcomeNotificationFailed
	// OutcomePersistFailed 决策写入失败
	OutcomePersistFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomeNotificationFailed:
		return "persisted_notification_failed"
	case OutcomePersistFailed:
		return "persist_failed"
	default:
		return "unknown"
	}
}

// RecordOutcome 单条记录结果，Key 为 transaction_id 或 customer_id
type RecordOutcome struct {
	Key      string
	Outcome  Outcome
	Notified bool
	Err      error
}

// BatchResult 批次结果
// Processed 为尝试处理的记录数，而非成功数
type BatchResult struct {
	Processed int
	Outcomes  []RecordOutcome
}

// Count 统计某种结果的记录数
func (r *BatchResult) Count(o Outcome) int {
	n := 0
	for _, out := range r.Outcomes {
		if out.Outcome == o {
			n++
		}
	}
	return n
}

// Err 合并所有持久化失败，无失败时返回 nil
func (r *BatchResult) Err() error {
	var result *multierror.Error
	for _, out := range r.Outcomes {
		if out.Outcome == OutcomePersistFailed && out.Err != nil {
			result = multierror.Append(result, out.Err)
		}
	}
	return result.ErrorOrNil()
}

// dropNil 去掉批次中的 nil 记录（如 JSON 中的 null 元素），返回保留的记录和被丢弃的下标
func dropNil[T any](records []*T) ([]*T, []int) {
	var dropped []int
	kept := make([]*T, 0, len(records))
	for i, r := range records {
		if r == nil {
			dropped = append(dropped, i)
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// fanOut 以最多 workers 个并发处理 n 条记录，结果按输入顺序返回
// 各记录互相独立，fn 不返回错误，失败体现在 RecordOutcome 中
func fanOut(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) RecordOutcome) *BatchResult {
	outcomes := make([]RecordOutcome, n)
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			outcomes[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return &BatchResult{Processed: n, Outcomes: outcomes}
}
