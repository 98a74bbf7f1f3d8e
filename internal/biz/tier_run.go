package biz

import (
	"context"
	"time"

	"spend-tier-service/internal/constants"
	tierErrors "spend-tier-service/internal/errors"
	"spend-tier-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// RunLocker 跨实例互斥，避免同时运行两次汇总
type RunLocker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// TierRunUseCase 月度汇总 + 批量等级处理
type TierRunUseCase struct {
	aggregate *AggregateUseCase
	batch     *BatchEligibilityUseCase
	locker    RunLocker
	log       *log.Helper
	metrics   *metrics.TierMetrics
}

// NewTierRunUseCase 创建月度运行 UseCase
func NewTierRunUseCase(aggregate *AggregateUseCase, batch *BatchEligibilityUseCase, locker RunLocker, logger log.Logger) *TierRunUseCase {
	return &TierRunUseCase{
		aggregate: aggregate,
		batch:     batch,
		locker:    locker,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Run 持锁汇总全部来源后交给批量等级处理
func (uc *TierRunUseCase) Run(ctx context.Context) (*BatchResult, error) {
	lockStartTime := time.Now()
	release, err := uc.locker.Acquire(ctx, constants.RedisKeyAggregateLock)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("aggregate lock not acquired after %s: %v", time.Since(lockStartTime), err)
		if uc.metrics != nil {
			uc.metrics.LockAcquireTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		return nil, tierErrors.ErrLockNotAcquired(err)
	}
	if uc.metrics != nil {
		uc.metrics.LockAcquireTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	defer release()

	records, err := uc.aggregate.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	return uc.batch.Process(ctx, records)
}
