// Package biztest 提供 biz 层接口的内存实现，供 service/server 测试使用
package biztest

import (
	"context"
	"sync"

	"spend-tier-service/internal/biz"
)

// EligibilityRepo 内存交易决策存储
type EligibilityRepo struct {
	mu      sync.Mutex
	Saved   map[string]*biz.EligibilityDecision
	SaveErr error
}

// NewEligibilityRepo 创建空存储
func NewEligibilityRepo() *EligibilityRepo {
	return &EligibilityRepo{Saved: map[string]*biz.EligibilityDecision{}}
}

func (r *EligibilityRepo) SaveEligibilityDecision(_ context.Context, d *biz.EligibilityDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	copied := *d
	r.Saved[d.TransactionID] = &copied
	return nil
}

func (r *EligibilityRepo) GetEligibilityDecision(_ context.Context, transactionID string) (*biz.EligibilityDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Saved[transactionID], nil
}

// TierRepo 内存等级决策存储
type TierRepo struct {
	mu      sync.Mutex
	Saved   map[string]*biz.TierDecision
	SaveErr error
}

// NewTierRepo 创建空存储
func NewTierRepo() *TierRepo {
	return &TierRepo{Saved: map[string]*biz.TierDecision{}}
}

func (r *TierRepo) SaveTierDecision(_ context.Context, d *biz.TierDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	copied := *d
	r.Saved[d.CustomerID] = &copied
	return nil
}

func (r *TierRepo) GetLatestTierDecision(_ context.Context, customerID string) (*biz.TierDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Saved[customerID], nil
}

// Notifier 记录所有发布的主题
type Notifier struct {
	mu       sync.Mutex
	Subjects []string
	Err      error
}

func (n *Notifier) Publish(_ context.Context, subject string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Subjects = append(n.Subjects, subject)
	return nil
}

// Count 已发布数量
func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Subjects)
}

// Dispatcher 记录所有移交的批次
type Dispatcher struct {
	Batches [][]*biz.TransactionRecord
	Err     error
}

func (d *Dispatcher) Dispatch(_ context.Context, records []*biz.TransactionRecord) error {
	if d.Err != nil {
		return d.Err
	}
	d.Batches = append(d.Batches, records)
	return nil
}

// Source 固定的消费来源
type Source []biz.SpendEntry

func (s Source) Each(_ context.Context, fn func(biz.SpendEntry) error) error {
	for _, e := range s {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Locker 总是成功，或总是返回 Err
type Locker struct {
	Err error
}

func (l Locker) Acquire(context.Context, string) (func(), error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return func() {}, nil
}

// RulesConfig 默认阈值：1000000 / 5000000 / 20000000，Silver 起通知
func RulesConfig() *biz.RulesConfig {
	return &biz.RulesConfig{
		EligibilityThreshold: 1000000,
		SilverThreshold:      5000000,
		GoldThreshold:        20000000,
		MinTierNotify:        biz.TierSilver,
		Workers:              2,
	}
}
