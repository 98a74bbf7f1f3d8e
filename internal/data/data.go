package data

import (
	"context"
	"time"

	"spend-tier-service/internal/conf"
	"spend-tier-service/internal/data/model"
	tierErrors "spend-tier-service/internal/errors"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewRedis,
	NewRedsync,
	NewMQProducer,
	NewData,
	NewEligibilityRepo,
	NewTierDecisionRepo,
	NewNotifier,
	NewDispatcher,
	NewRunLocker,
	NewSpendSource,
)

// mqSender 发送消息所需的 producer 能力
type mqSender interface {
	SendSync(ctx context.Context, mq ...*primitive.Message) (*primitive.SendResult, error)
	SendAsync(ctx context.Context, h func(ctx context.Context, result *primitive.SendResult, err error), mq ...*primitive.Message) error
}

// Data 数据层结构体
type Data struct {
	db       *gorm.DB
	rdb      *redis.Client
	mq       mqSender
	cacheTTL time.Duration
	topics   topics
}

type topics struct {
	validated string
	notify    string
}

// NewDB 创建数据库连接，决策存储缺失是启动错误
func NewDB(c *conf.Bootstrap) (*gorm.DB, error) {
	if c.Data == nil || c.Data.Database == nil || c.Data.Database.Source == "" {
		return nil, tierErrors.ErrConfiguration("database source is required")
	}
	if d := c.Data.Database.Driver; d != "" && d != "mysql" {
		return nil, tierErrors.ErrConfiguration("unsupported database driver %q", d)
	}
	db, err := gorm.Open(mysql.Open(c.Data.Database.Source), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if c.Data.Database.AutoMigrate {
		if err := db.AutoMigrate(&model.EligibilityDecision{}, &model.TierDecision{}); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// NewRedis 创建 Redis 连接
func NewRedis(c *conf.Bootstrap) (*redis.Client, error) {
	if c.Data == nil || c.Data.Redis == nil || c.Data.Redis.Addr == "" {
		return nil, tierErrors.ErrConfiguration("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Data.Redis.Addr,
		ReadTimeout:  c.Data.Redis.ReadTimeout.AsDuration(),
		WriteTimeout: c.Data.Redis.WriteTimeout.AsDuration(),
	})

	// 测试连接
	if err := rdb.Ping(rdb.Context()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// NewRedsync 基于 Redis 的分布式锁
func NewRedsync(rdb *redis.Client) *redsync.Redsync {
	return redsync.New(goredis.NewPool(rdb))
}

// NewMQProducer 创建 RocketMQ producer，通知出口缺失是启动错误
func NewMQProducer(c *conf.Bootstrap, logger log.Logger) (rocketmq.Producer, func(), error) {
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return nil, nil, tierErrors.ErrConfiguration("rocketmq must be enabled for notifications")
	}
	mc := c.Data.Rocketmq
	if mc.NotifyTopic == "" {
		return nil, nil, tierErrors.ErrConfiguration("notify topic is required")
	}
	if len(mc.NameServers) == 0 {
		return nil, nil, tierErrors.ErrConfiguration("rocketmq name servers are required")
	}

	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(mc.NameServers)),
		producer.WithGroupName(mc.GroupName),
		producer.WithRetry(int(mc.RetryTimes)),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Start(); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := p.Shutdown(); err != nil {
			log.NewHelper(logger).Errorf("failed to shutdown rocketmq producer: %v", err)
		}
	}
	return p, cleanup, nil
}

// NewData 创建数据层实例
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client, mq rocketmq.Producer) (*Data, func(), error) {
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		if err := rdb.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close redis: %v", err)
		}
	}

	cacheTTL := c.Data.Redis.CacheTTL.AsDuration()
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}

	return &Data{
		db:       db,
		rdb:      rdb,
		mq:       mq,
		cacheTTL: cacheTTL,
		topics: topics{
			validated: c.Data.Rocketmq.ValidatedTopic,
			notify:    c.Data.Rocketmq.NotifyTopic,
		},
	}, cleanup, nil
}
