package biz

import (
	"context"
	"time"

	"spend-tier-service/internal/constants"
	tierErrors "spend-tier-service/internal/errors"
	"spend-tier-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// EligibilityDecision 单笔交易资格决策，以 transaction_id 为键
type EligibilityDecision struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	Amount        int64  `json:"amount"`
	Eligible      bool   `json:"eligible"`
	Timestamp     int64  `json:"timestamp"`
}

// EligibilityRepo 交易资格决策存储
type EligibilityRepo interface {
	// SaveEligibilityDecision 按 transaction_id upsert，重复写入覆盖旧值
	SaveEligibilityDecision(ctx context.Context, d *EligibilityDecision) error
	// GetEligibilityDecision 不存在时返回 nil, nil
	GetEligibilityDecision(ctx context.Context, transactionID string) (*EligibilityDecision, error)
}

// Notifier 通知通道，尽力而为，只关心单次发布是否成功
type Notifier interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// RulesEngineUseCase 交易资格规则引擎
type RulesEngineUseCase struct {
	repo     EligibilityRepo
	notifier Notifier
	conf     *RulesConfig
	log      *log.Helper
	metrics  *metrics.TierMetrics
}

// NewRulesEngineUseCase 创建规则引擎 UseCase
func NewRulesEngineUseCase(repo EligibilityRepo, notifier Notifier, conf *RulesConfig, logger log.Logger) *RulesEngineUseCase {
	return &RulesEngineUseCase{
		repo:     repo,
		notifier: notifier,
		conf:     conf,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
	}
}

// IsEligible 单笔交易是否满足资格
func (uc *RulesEngineUseCase) IsEligible(amount int64) bool {
	return amount >= uc.conf.EligibilityThreshold
}

// Apply 对每条记录计算资格、写入决策，满足资格时发送通知
// 记录之间互不影响：通知失败只记录日志；写入失败体现在结果中，其余记录继续处理
// BatchResult.Processed 为尝试处理的记录数，error 为合并后的写入失败
func (uc *RulesEngineUseCase) Apply(ctx context.Context, records []*TransactionRecord) (*BatchResult, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.BatchDuration.WithLabelValues("apply").Observe(time.Since(startTime).Seconds())
			uc.metrics.BatchSize.WithLabelValues("apply").Observe(float64(len(records)))
		}
	}()

	records, dropped := dropNil(records)
	for _, i := range dropped {
		uc.log.WithContext(ctx).Warnf("skip null record at index %d", i)
	}
	uc.log.WithContext(ctx).Infof("processing %d records", len(records))
	result := fanOut(ctx, len(records), uc.conf.Workers, func(ctx context.Context, i int) RecordOutcome {
		return uc.applyOne(ctx, records[i])
	})
	uc.log.WithContext(ctx).Infof("rules engine completed: processed=%d, persist_failed=%d, notify_failed=%d",
		result.Processed, result.Count(OutcomePersistFailed), result.Count(OutcomeNotificationFailed))
	return result, result.Err()
}

func (uc *RulesEngineUseCase) applyOne(ctx context.Context, rec *TransactionRecord) RecordOutcome {
	decision := &EligibilityDecision{
		TransactionID: rec.TransactionID,
		CustomerID:    rec.CustomerID,
		Amount:        rec.Amount,
		Eligible:      uc.IsEligible(rec.Amount),
		Timestamp:     rec.Timestamp,
	}
	out := RecordOutcome{Key: rec.TransactionID}

	if err := uc.repo.SaveEligibilityDecision(ctx, decision); err != nil {
		uc.log.WithContext(ctx).Errorf("save eligibility decision failed: transaction_id=%s, error=%v", rec.TransactionID, err)
		uc.observeDecision(constants.ResultFailed)
		out.Outcome = OutcomePersistFailed
		out.Err = tierErrors.ErrPersistence(rec.TransactionID, err)
		return out
	}
	uc.observeDecision(constants.ResultSuccess)
	uc.log.WithContext(ctx).Debugf("wrote decision %s (eligible=%t)", rec.TransactionID, decision.Eligible)

	out.Outcome = OutcomePersisted
	if !decision.Eligible {
		return out
	}
	if err := uc.notifier.Publish(ctx, constants.SubjectEligibleTransaction, decision); err != nil {
		uc.log.WithContext(ctx).Errorf("publish eligibility notification failed: transaction_id=%s, error=%v", rec.TransactionID, err)
		uc.observeNotify(constants.ResultFailed)
		out.Outcome = OutcomeNotificationFailed
		return out
	}
	uc.observeNotify(constants.ResultSuccess)
	out.Notified = true
	return out
}

// GetDecision 查询交易资格决策
func (uc *RulesEngineUseCase) GetDecision(ctx context.Context, transactionID string) (*EligibilityDecision, error) {
	return uc.repo.GetEligibilityDecision(ctx, transactionID)
}

func (uc *RulesEngineUseCase) observeDecision(result string) {
	if uc.metrics != nil {
		uc.metrics.DecisionTotal.WithLabelValues(constants.DecisionKindEligibility, result).Inc()
	}
}

func (uc *RulesEngineUseCase) observeNotify(result string) {
	if uc.metrics != nil {
		uc.metrics.NotifyTotal.WithLabelValues(constants.DecisionKindEligibility, result).Inc()
	}
}
