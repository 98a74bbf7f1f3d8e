package service

import (
	"context"
	"encoding/json"

	"spend-tier-service/internal/biz"
	tierErrors "spend-tier-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewTierService)

// TierService 面向运营/上游系统的 HTTP 服务
type TierService struct {
	validator *biz.ValidatorUseCase
	rules     *biz.RulesEngineUseCase
	batch     *biz.BatchEligibilityUseCase
	run       *biz.TierRunUseCase
	conf      *biz.RulesConfig
	log       *log.Helper
}

// NewTierService 创建 TierService
func NewTierService(
	validator *biz.ValidatorUseCase,
	rules *biz.RulesEngineUseCase,
	batch *biz.BatchEligibilityUseCase,
	run *biz.TierRunUseCase,
	conf *biz.RulesConfig,
	logger log.Logger,
) *TierService {
	return &TierService{
		validator: validator,
		rules:     rules,
		batch:     batch,
		run:       run,
		conf:      conf,
		log:       log.NewHelper(logger),
	}
}

// Classify 计算单个客户的等级，不写入
func (s *TierService) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyReply, error) {
	if req.Body != "" {
		var inner ClassifyRequest
		if err := json.Unmarshal([]byte(req.Body), &inner); err != nil {
			return nil, tierErrors.ErrInvalidArgument("body is not valid json: %v", err)
		}
		req = &inner
	}
	if req.MonthlySpend < 0 {
		return nil, tierErrors.ErrInvalidArgument("monthly_spend must not be negative")
	}
	return &ClassifyReply{
		CustomerID:   req.CustomerID,
		MonthlySpend: req.MonthlySpend,
		Tier:         s.conf.Classify(req.MonthlySpend),
	}, nil
}

// ValidateTransactions 校验原始交易并移交规则引擎
func (s *TierService) ValidateTransactions(ctx context.Context, req *ValidateRequest) (*ValidateReply, error) {
	payloads := make([][]byte, 0, len(req.Records))
	for _, r := range req.Records {
		payloads = append(payloads, r)
	}
	valid, err := s.validator.ValidateAndDispatch(ctx, payloads)
	if err != nil {
		s.log.Errorf("ValidateTransactions failed: %v", err)
		return nil, err
	}
	return &ValidateReply{Received: len(payloads), Valid: valid}, nil
}

// ApplyRules 对校验后的交易执行规则引擎
func (s *TierService) ApplyRules(ctx context.Context, req *biz.ValidatedBatch) (*BatchReply, error) {
	res, err := s.rules.Apply(ctx, req.ValidRecords)
	if err != nil {
		s.log.Errorf("ApplyRules partially failed: %v", err)
	}
	return toBatchReply(res), nil
}

// ProcessTiers 对汇总记录执行批量等级处理
func (s *TierService) ProcessTiers(ctx context.Context, req *BatchRequest) (*BatchReply, error) {
	res, err := s.batch.Process(ctx, req.Records)
	if err != nil {
		s.log.Errorf("ProcessTiers partially failed: %v", err)
	}
	return toBatchReply(res), nil
}

// RunAggregate 手动触发一次月度汇总
func (s *TierService) RunAggregate(ctx context.Context) (*BatchReply, error) {
	res, err := s.run.Run(ctx)
	if res == nil {
		s.log.Errorf("RunAggregate failed: %v", err)
		return nil, err
	}
	if err != nil {
		s.log.Errorf("RunAggregate partially failed: %v", err)
	}
	return toBatchReply(res), nil
}

// GetTier 查询客户最新等级
func (s *TierService) GetTier(ctx context.Context, customerID string) (*biz.TierDecision, error) {
	if customerID == "" {
		return nil, tierErrors.ErrInvalidArgument("customer_id is required")
	}
	d, err := s.batch.GetLatest(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, tierErrors.ErrDecisionNotFound(customerID)
	}
	return d, nil
}

// GetEligibility 查询交易资格决策
func (s *TierService) GetEligibility(ctx context.Context, transactionID string) (*biz.EligibilityDecision, error) {
	if transactionID == "" {
		return nil, tierErrors.ErrInvalidArgument("transaction_id is required")
	}
	d, err := s.rules.GetDecision(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, tierErrors.ErrDecisionNotFound(transactionID)
	}
	return d, nil
}
