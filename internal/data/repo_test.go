package data

import (
	"context"
	"testing"
	"time"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/constants"
	"spend-tier-service/internal/data/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepoData(t *testing.T) (*Data, *miniredis.Miniredis) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.EligibilityDecision{}, &model.TierDecision{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return &Data{db: db, rdb: rdb, cacheTTL: time.Hour}, mr
}

func TestEligibilityRepoUpsert(t *testing.T) {
	data, _ := newRepoData(t)
	repo := NewEligibilityRepo(data, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, repo.SaveEligibilityDecision(ctx, &biz.EligibilityDecision{
		TransactionID: "t1", CustomerID: "c1", Amount: 2000000, Eligible: true, Timestamp: 100,
	}))
	require.NoError(t, repo.SaveEligibilityDecision(ctx, &biz.EligibilityDecision{
		TransactionID: "t1", CustomerID: "c2", Amount: 5, Eligible: false, Timestamp: 200,
	}))

	var count int64
	require.NoError(t, data.db.Model(&model.EligibilityDecision{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetEligibilityDecision(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, &biz.EligibilityDecision{
		TransactionID: "t1", CustomerID: "c2", Amount: 5, Eligible: false, Timestamp: 200,
	}, got)

	missing, err := repo.GetEligibilityDecision(ctx, "t404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTierDecisionRepoUpsert(t *testing.T) {
	data, mr := newRepoData(t)
	repo := NewTierDecisionRepo(data, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, repo.SaveTierDecision(ctx, &biz.TierDecision{
		CustomerID: "c1", DecisionID: "d1", MonthlySpend: 6000000, Tier: biz.TierSilver, UpdatedAt: 1,
	}))
	latest := &biz.TierDecision{CustomerID: "c1", DecisionID: "d2", MonthlySpend: 25000000, Tier: biz.TierGold, UpdatedAt: 2}
	require.NoError(t, repo.SaveTierDecision(ctx, latest))

	var rows []model.TierDecision
	require.NoError(t, data.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "d2", rows[0].DecisionID)
	assert.Equal(t, "Gold", rows[0].Tier)
	assert.Equal(t, int64(2), rows[0].UpdatedAt)
	assert.True(t, mr.Exists(constants.RedisKeyLatestTier+"c1"))

	// 缓存未命中时从数据库读取
	mr.FlushAll()
	got, err := repo.GetLatestTierDecision(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, latest, got)

	missing, err := repo.GetLatestTierDecision(ctx, "c404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTierCacheFillKeepsNewerSnapshot(t *testing.T) {
	data, mr := newRepoData(t)
	r := &tierDecisionRepo{data: data, log: log.NewHelper(log.DefaultLogger)}
	ctx := context.Background()

	stale := &biz.TierDecision{CustomerID: "c1", DecisionID: "d1", MonthlySpend: 100, Tier: biz.TierBronze, UpdatedAt: 1}
	fresh := &biz.TierDecision{CustomerID: "c1", DecisionID: "d2", MonthlySpend: 6000000, Tier: biz.TierSilver, UpdatedAt: 2}

	// 读路径先读到旧行，写路径随后写入新快照，读路径的回填最后到达
	require.NoError(t, r.SaveTierDecision(ctx, fresh))
	require.NoError(t, r.fillCache(ctx, stale))

	got, err := r.GetLatestTierDecision(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	// 缓存为空时回填生效
	mr.FlushAll()
	require.NoError(t, r.fillCache(ctx, fresh))
	assert.True(t, mr.Exists(constants.RedisKeyLatestTier+"c1"))
}
