package biz

import (
	"spend-tier-service/internal/conf"
	"spend-tier-service/internal/constants"
	tierErrors "spend-tier-service/internal/errors"
)

// RulesConfig 阈值配置，进程启动时构造一次并注入各组件
type RulesConfig struct {
	EligibilityThreshold int64
	SilverThreshold      int64
	GoldThreshold        int64
	MinTierNotify        Tier
	Workers              int
}

// NewRulesConfig 从配置创建 RulesConfig，不合法时返回配置错误
func NewRulesConfig(c *conf.Bootstrap) (*RulesConfig, error) {
	config := &RulesConfig{
		EligibilityThreshold: constants.DefaultEligibilityThreshold,
		SilverThreshold:      constants.DefaultSilverThreshold,
		GoldThreshold:        constants.DefaultGoldThreshold,
		MinTierNotify:        TierSilver,
		Workers:              constants.DefaultWorkers,
	}
	if r := c.Rules; r != nil {
		if r.EligibilityThreshold != nil {
			config.EligibilityThreshold = *r.EligibilityThreshold
		}
		if r.SilverThreshold != nil {
			config.SilverThreshold = *r.SilverThreshold
		}
		if r.GoldThreshold != nil {
			config.GoldThreshold = *r.GoldThreshold
		}
		if r.MinTierNotify != "" {
			tier, err := ParseTier(r.MinTierNotify)
			if err != nil {
				return nil, tierErrors.ErrConfiguration("MIN_TIER_NOTIFY: %v", err)
			}
			config.MinTierNotify = tier
		}
		if r.Workers > 0 {
			config.Workers = r.Workers
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 检查阈值约束
func (c *RulesConfig) Validate() error {
	if c.EligibilityThreshold < 0 || c.SilverThreshold < 0 || c.GoldThreshold < 0 {
		return tierErrors.ErrConfiguration("thresholds must not be negative")
	}
	if c.SilverThreshold >= c.GoldThreshold {
		return tierErrors.ErrConfiguration("SILVER_THRESHOLD (%d) must be less than GOLD_THRESHOLD (%d)",
			c.SilverThreshold, c.GoldThreshold)
	}
	if Rank(c.MinTierNotify) == 0 {
		return tierErrors.ErrConfiguration("MIN_TIER_NOTIFY %q is not a tier", c.MinTierNotify)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// Classify 使用配置的阈值计算等级
func (c *RulesConfig) Classify(amount int64) Tier {
	return Classify(amount, c.SilverThreshold, c.GoldThreshold)
}

// ShouldNotify 等级是否达到通知门槛
func (c *RulesConfig) ShouldNotify(t Tier) bool {
	return Rank(t) >= Rank(c.MinTierNotify)
}
