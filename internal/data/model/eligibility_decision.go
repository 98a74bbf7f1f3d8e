package model

import (
	"time"
)

// EligibilityDecision 交易资格决策表，transaction_id 唯一
type EligibilityDecision struct {
	TransactionID string    `gorm:"primaryKey;type:varchar(64)"`
	CustomerID    string    `gorm:"type:varchar(64);not null;index:idx_customer_ts,priority:1"`
	Amount        int64     `gorm:"not null;default:0"`
	Eligible      bool      `gorm:"not null;default:false"`
	Timestamp     int64     `gorm:"not null;index:idx_customer_ts,priority:2;index:idx_ts"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (EligibilityDecision) TableName() string {
	return "eligibility_decision"
}
