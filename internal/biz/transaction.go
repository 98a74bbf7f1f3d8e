package biz

import (
	"context"
	"encoding/json"
	"time"

	"spend-tier-service/internal/constants"
	tierErrors "spend-tier-service/internal/errors"
	"spend-tier-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-playground/validator/v10"
)

// TransactionRecord 校验通过的交易记录
type TransactionRecord struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	Amount        int64  `json:"amount"`
	Timestamp     int64  `json:"timestamp"`
}

// ValidatedBatch 校验后批次的消息体
type ValidatedBatch struct {
	ValidRecords []*TransactionRecord `json:"valid_records"`
}

// rawTransaction 用指针区分字段缺失与零值
// 字段存在但为 null 时按缺失处理：null 金额无法参与资格判断
type rawTransaction struct {
	TransactionID *string `json:"transaction_id" validate:"required"`
	CustomerID    *string `json:"customer_id" validate:"required"`
	Amount        *int64  `json:"amount" validate:"required,gte=0"`
	Timestamp     *int64  `json:"timestamp" validate:"required"`
}

// ValidatedDispatcher 校验后批次的移交通道
// 异步、至少一次投递：同一批次可能被重复投递，消费方必须幂等
type ValidatedDispatcher interface {
	Dispatch(ctx context.Context, records []*TransactionRecord) error
}

// ValidatorUseCase 交易校验
type ValidatorUseCase struct {
	dispatcher ValidatedDispatcher
	validate   *validator.Validate
	log        *log.Helper
	metrics    *metrics.TierMetrics
}

// NewValidatorUseCase 创建校验 UseCase
func NewValidatorUseCase(dispatcher ValidatedDispatcher, logger log.Logger) *ValidatorUseCase {
	return &ValidatorUseCase{
		dispatcher: dispatcher,
		validate:   validator.New(),
		log:        log.NewHelper(logger),
		metrics:    metrics.GetMetrics(),
	}
}

// Validate 过滤出包含全部必填字段的记录，保持输入顺序
// 不合法的记录只记录日志并丢弃，不会导致整批失败
func (uc *ValidatorUseCase) Validate(ctx context.Context, payloads [][]byte) []*TransactionRecord {
	valid := make([]*TransactionRecord, 0, len(payloads))
	for i, payload := range payloads {
		record, err := uc.parse(ctx, payload)
		if err != nil {
			uc.log.WithContext(ctx).Warnf("drop invalid transaction payload: index=%d, error=%v, payload=%s", i, err, truncate(payload, 256))
			uc.observe(constants.ResultInvalid)
			continue
		}
		valid = append(valid, record)
		uc.observe(constants.ResultValid)
	}
	return valid
}

// ValidateAndDispatch 校验并将非空的有效子集移交给规则引擎
// 返回有效记录数；全部无效时不移交，也不是错误
func (uc *ValidatorUseCase) ValidateAndDispatch(ctx context.Context, payloads [][]byte) (int, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.BatchDuration.WithLabelValues("validate").Observe(time.Since(startTime).Seconds())
			uc.metrics.BatchSize.WithLabelValues("validate").Observe(float64(len(payloads)))
		}
	}()

	records := uc.Validate(ctx, payloads)
	uc.log.WithContext(ctx).Infof("validated %d of %d records", len(records), len(payloads))
	if len(records) == 0 {
		uc.log.WithContext(ctx).Info("no valid records to dispatch")
		return 0, nil
	}

	if err := uc.dispatcher.Dispatch(ctx, records); err != nil {
		uc.log.WithContext(ctx).Errorf("dispatch validated batch failed: records=%d, error=%v", len(records), err)
		if uc.metrics != nil {
			uc.metrics.DispatchTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		return len(records), tierErrors.ErrDispatch(err)
	}
	if uc.metrics != nil {
		uc.metrics.DispatchTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	return len(records), nil
}

func (uc *ValidatorUseCase) parse(ctx context.Context, payload []byte) (*TransactionRecord, error) {
	var raw rawTransaction
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if err := uc.validate.StructCtx(ctx, &raw); err != nil {
		return nil, err
	}
	return &TransactionRecord{
		TransactionID: *raw.TransactionID,
		CustomerID:    *raw.CustomerID,
		Amount:        *raw.Amount,
		Timestamp:     *raw.Timestamp,
	}, nil
}

func (uc *ValidatorUseCase) observe(result string) {
	if uc.metrics != nil {
		uc.metrics.ValidatorRecordsTotal.WithLabelValues(result).Inc()
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
