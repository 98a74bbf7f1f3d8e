package data

import (
	"context"
	"errors"
	"fmt"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eligibilityRepo 交易资格决策数据访问
type eligibilityRepo struct {
	data *Data
	log  *log.Helper
}

// NewEligibilityRepo 创建交易资格 repo（返回 biz.EligibilityRepo 接口）
func NewEligibilityRepo(data *Data, logger log.Logger) biz.EligibilityRepo {
	return &eligibilityRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// SaveEligibilityDecision 按 transaction_id upsert，重复投递时覆盖为最后一次的值
func (r *eligibilityRepo) SaveEligibilityDecision(ctx context.Context, d *biz.EligibilityDecision) error {
	m := toEligibilityModel(d)
	err := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "amount", "eligible", "timestamp", "updated_at"}),
		}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert eligibility decision %s: %w", d.TransactionID, err)
	}
	return nil
}

// GetEligibilityDecision 查询交易资格决策
func (r *eligibilityRepo) GetEligibilityDecision(ctx context.Context, transactionID string) (*biz.EligibilityDecision, error) {
	var m model.EligibilityDecision
	if err := r.data.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetEligibilityDecision failed: transaction_id=%s, error=%v", transactionID, err)
		return nil, fmt.Errorf("failed to query eligibility decision: %w", err)
	}
	return fromEligibilityModel(&m), nil
}

func toEligibilityModel(d *biz.EligibilityDecision) model.EligibilityDecision {
	return model.EligibilityDecision{
		TransactionID: d.TransactionID,
		CustomerID:    d.CustomerID,
		Amount:        d.Amount,
		Eligible:      d.Eligible,
		Timestamp:     d.Timestamp,
	}
}

func fromEligibilityModel(m *model.EligibilityDecision) *biz.EligibilityDecision {
	return &biz.EligibilityDecision{
		TransactionID: m.TransactionID,
		CustomerID:    m.CustomerID,
		Amount:        m.Amount,
		Eligible:      m.Eligible,
		Timestamp:     m.Timestamp,
	}
}
