package biz

import (
	"context"
	"time"

	"spend-tier-service/internal/constants"
	tierErrors "spend-tier-service/internal/errors"
	"spend-tier-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// TierDecision 客户等级决策
// 存储以 customer_id 为键保存最新快照，DecisionID 每次运行重新生成
type TierDecision struct {
	CustomerID   string `json:"customer_id"`
	DecisionID   string `json:"decision_id"`
	MonthlySpend int64  `json:"monthly_spend"`
	Tier         Tier   `json:"tier"`
	UpdatedAt    int64  `json:"updated_at"`
}

// TierNotification 等级通知内容
type TierNotification struct {
	CustomerID   string `json:"customer_id"`
	Tier         Tier   `json:"tier"`
	MonthlySpend int64  `json:"monthly_spend"`
}

// TierDecisionRepo 客户等级决策存储
type TierDecisionRepo interface {
	// SaveTierDecision 按 customer_id upsert（最新快照覆盖）
	SaveTierDecision(ctx context.Context, d *TierDecision) error
	// GetLatestTierDecision 不存在时返回 nil, nil
	GetLatestTierDecision(ctx context.Context, customerID string) (*TierDecision, error)
}

// BatchEligibilityUseCase 批量等级资格处理
type BatchEligibilityUseCase struct {
	repo     TierDecisionRepo
	notifier Notifier
	conf     *RulesConfig
	log      *log.Helper
	metrics  *metrics.TierMetrics

	now   func() time.Time
	newID func() string
}

// NewBatchEligibilityUseCase 创建批量等级 UseCase
func NewBatchEligibilityUseCase(repo TierDecisionRepo, notifier Notifier, conf *RulesConfig, logger log.Logger) *BatchEligibilityUseCase {
	return &BatchEligibilityUseCase{
		repo:     repo,
		notifier: notifier,
		conf:     conf,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Process 为每个客户计算等级、写入决策，等级达到门槛时发送通知
// 空输入返回 0，不是错误；失败隔离策略与规则引擎一致
func (uc *BatchEligibilityUseCase) Process(ctx context.Context, records []*AggregateRecord) (*BatchResult, error) {
	records, dropped := dropNil(records)
	for _, i := range dropped {
		uc.log.WithContext(ctx).Warnf("skip null record at index %d", i)
	}
	if len(records) == 0 {
		uc.log.WithContext(ctx).Info("no records supplied")
		return &BatchResult{}, nil
	}

	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.BatchDuration.WithLabelValues("process").Observe(time.Since(startTime).Seconds())
			uc.metrics.BatchSize.WithLabelValues("process").Observe(float64(len(records)))
		}
	}()

	uc.log.WithContext(ctx).Infof("notify threshold tier: %s (rank %d)", uc.conf.MinTierNotify, Rank(uc.conf.MinTierNotify))
	result := fanOut(ctx, len(records), uc.conf.Workers, func(ctx context.Context, i int) RecordOutcome {
		return uc.processOne(ctx, records[i])
	})
	uc.log.WithContext(ctx).Infof("batch eligibility completed: processed=%d, persist_failed=%d, notify_failed=%d",
		result.Processed, result.Count(OutcomePersistFailed), result.Count(OutcomeNotificationFailed))
	return result, result.Err()
}

func (uc *BatchEligibilityUseCase) processOne(ctx context.Context, r *AggregateRecord) RecordOutcome {
	spend := r.MonthlySpend
	if spend < 0 {
		spend = 0
	}
	tier := uc.conf.Classify(spend)
	decision := &TierDecision{
		CustomerID:   r.CustomerID,
		DecisionID:   uc.newID(),
		MonthlySpend: spend,
		Tier:         tier,
		UpdatedAt:    uc.now().Unix(),
	}
	out := RecordOutcome{Key: r.CustomerID}

	if err := uc.repo.SaveTierDecision(ctx, decision); err != nil {
		uc.log.WithContext(ctx).Errorf("save tier decision failed: customer_id=%s, error=%v", r.CustomerID, err)
		uc.observeDecision(constants.ResultFailed)
		out.Outcome = OutcomePersistFailed
		out.Err = tierErrors.ErrPersistence(r.CustomerID, err)
		return out
	}
	uc.observeDecision(constants.ResultSuccess)
	if uc.metrics != nil {
		uc.metrics.TierAssigned.WithLabelValues(string(tier)).Inc()
	}
	uc.log.WithContext(ctx).Debugf("upserted tier decision for %s: tier=%s, spend=%d", r.CustomerID, tier, spend)

	out.Outcome = OutcomePersisted
	if !uc.conf.ShouldNotify(tier) {
		return out
	}
	msg := &TierNotification{CustomerID: r.CustomerID, Tier: tier, MonthlySpend: spend}
	if err := uc.notifier.Publish(ctx, constants.SubjectPromotionEligibility, msg); err != nil {
		uc.log.WithContext(ctx).Errorf("publish tier notification failed: customer_id=%s, error=%v", r.CustomerID, err)
		uc.observeNotify(constants.ResultFailed)
		out.Outcome = OutcomeNotificationFailed
		return out
	}
	uc.observeNotify(constants.ResultSuccess)
	out.Notified = true
	return out
}

// GetLatest 查询客户最新等级
func (uc *BatchEligibilityUseCase) GetLatest(ctx context.Context, customerID string) (*TierDecision, error) {
	return uc.repo.GetLatestTierDecision(ctx, customerID)
}

func (uc *BatchEligibilityUseCase) observeDecision(result string) {
	if uc.metrics != nil {
		uc.metrics.DecisionTotal.WithLabelValues(constants.DecisionKindTier, result).Inc()
	}
}

func (uc *BatchEligibilityUseCase) observeNotify(result string) {
	if uc.metrics != nil {
		uc.metrics.NotifyTotal.WithLabelValues(constants.DecisionKindTier, result).Inc()
	}
}
