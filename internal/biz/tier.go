package biz

import (
	"fmt"
	"strings"
)

// Tier 客户消费等级
type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

// Classify 根据两个有序阈值计算等级
// 要求 silver <= gold，由 NewRulesConfig 在启动时保证
func Classify(amount, silver, gold int64) Tier {
	if amount >= gold {
		return TierGold
	}
	if amount >= silver {
		return TierSilver
	}
	return TierBronze
}

// Rank 等级序号，用于比较；未知等级为 0
func Rank(t Tier) int {
	switch t {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	default:
		return 0
	}
}

// ParseTier 解析等级名称（大小写不敏感）
func ParseTier(s string) (Tier, error) {
	for _, t := range []Tier{TierBronze, TierSilver, TierGold} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", s)
}
