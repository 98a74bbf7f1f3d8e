package model

import (
	"time"
)

// TierDecision 客户等级决策表，每个客户保留最新快照
type TierDecision struct {
	CustomerID   string    `gorm:"primaryKey;type:varchar(64)"`
	DecisionID   string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	MonthlySpend int64     `gorm:"not null;default:0"`
	Tier         string    `gorm:"type:varchar(16);not null;index"`
	UpdatedAt    int64     `gorm:"autoUpdateTime:false;not null"` // Unix 秒，决策时间
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (TierDecision) TableName() string {
	return "tier_decision"
}
