package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/constants"
	"spend-tier-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tierDecisionRepo 客户等级决策数据访问
type tierDecisionRepo struct {
	data *Data
	log  *log.Helper
}

// NewTierDecisionRepo 创建等级 repo（返回 biz.TierDecisionRepo 接口）
func NewTierDecisionRepo(data *Data, logger log.Logger) biz.TierDecisionRepo {
	return &tierDecisionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// SaveTierDecision 按 customer_id upsert，保留最新快照
// 重复运行或重复投递只覆盖，不累积
func (r *tierDecisionRepo) SaveTierDecision(ctx context.Context, d *biz.TierDecision) error {
	m := toTierModel(d)
	err := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"decision_id", "monthly_spend", "tier", "updated_at"}),
		}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert tier decision %s: %w", d.CustomerID, err)
	}

	// 写入成功后更新缓存，失败不影响主流程
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()
	if err := r.setCache(cacheCtx, d); err != nil {
		r.log.Warnf("failed to update tier cache: customer_id=%s, error=%v", d.CustomerID, err)
	}
	return nil
}

// GetLatestTierDecision 先查缓存，未命中再查数据库
func (r *tierDecisionRepo) GetLatestTierDecision(ctx context.Context, customerID string) (*biz.TierDecision, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customerID is required")
	}

	cached, err := r.data.rdb.Get(ctx, tierCacheKey(customerID)).Bytes()
	if err == nil {
		var d biz.TierDecision
		if err := json.Unmarshal(cached, &d); err == nil {
			return &d, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warnf("read tier cache failed: customer_id=%s, error=%v", customerID, err)
	}

	// 缓存未命中，从数据库查询
	var m model.TierDecision
	if err := r.data.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetLatestTierDecision failed: customer_id=%s, error=%v", customerID, err)
		return nil, fmt.Errorf("failed to query tier decision: %w", err)
	}
	d := fromTierModel(&m)

	// 更新缓存（异步，不阻塞）
	go func() {
		cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cacheCancel()
		if err := r.fillCache(cacheCtx, d); err != nil {
			r.log.Warnf("failed to fill tier cache: customer_id=%s, error=%v", customerID, err)
		}
	}()

	return d, nil
}

func (r *tierDecisionRepo) setCache(ctx context.Context, d *biz.TierDecision) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.data.rdb.Set(ctx, tierCacheKey(d.CustomerID), b, r.data.cacheTTL).Err()
}

// fillCache 只在缓存为空时写入，读路径不能覆盖 SaveTierDecision 写入的新快照
func (r *tierDecisionRepo) fillCache(ctx context.Context, d *biz.TierDecision) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.data.rdb.SetNX(ctx, tierCacheKey(d.CustomerID), b, r.data.cacheTTL).Err()
}

func tierCacheKey(customerID string) string {
	return constants.RedisKeyLatestTier + customerID
}

func toTierModel(d *biz.TierDecision) model.TierDecision {
	return model.TierDecision{
		CustomerID:   d.CustomerID,
		DecisionID:   d.DecisionID,
		MonthlySpend: d.MonthlySpend,
		Tier:         string(d.Tier),
		UpdatedAt:    d.UpdatedAt,
	}
}

func fromTierModel(m *model.TierDecision) *biz.TierDecision {
	return &biz.TierDecision{
		CustomerID:   m.CustomerID,
		DecisionID:   m.DecisionID,
		MonthlySpend: m.MonthlySpend,
		Tier:         biz.Tier(m.Tier),
		UpdatedAt:    m.UpdatedAt,
	}
}
