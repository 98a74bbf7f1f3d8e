package biz

import (
	"context"
	"errors"
	"sync"
)

var errStoreDown = errors.New("store unavailable")

type fakeEligibilityRepo struct {
	mu      sync.Mutex
	saved   map[string]*EligibilityDecision
	writes  int
	failFor map[string]bool
}

func newFakeEligibilityRepo() *fakeEligibilityRepo {
	return &fakeEligibilityRepo{saved: map[string]*EligibilityDecision{}, failFor: map[string]bool{}}
}

func (r *fakeEligibilityRepo) SaveEligibilityDecision(_ context.Context, d *EligibilityDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[d.TransactionID] {
		return errStoreDown
	}
	r.writes++
	copied := *d
	r.saved[d.TransactionID] = &copied
	return nil
}

func (r *fakeEligibilityRepo) GetEligibilityDecision(_ context.Context, transactionID string) (*EligibilityDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[transactionID], nil
}

type fakeTierRepo struct {
	mu      sync.Mutex
	saved   map[string]*TierDecision
	failFor map[string]bool
}

func newFakeTierRepo() *fakeTierRepo {
	return &fakeTierRepo{saved: map[string]*TierDecision{}, failFor: map[string]bool{}}
}

func (r *fakeTierRepo) SaveTierDecision(_ context.Context, d *TierDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[d.CustomerID] {
		return errStoreDown
	}
	copied := *d
	r.saved[d.CustomerID] = &copied
	return nil
}

func (r *fakeTierRepo) GetLatestTierDecision(_ context.Context, customerID string) (*TierDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[customerID], nil
}

type published struct {
	subject string
	payload any
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (n *fakeNotifier) Publish(_ context.Context, subject string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, published{subject: subject, payload: payload})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeDispatcher struct {
	batches [][]*TransactionRecord
	err     error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, records []*TransactionRecord) error {
	if d.err != nil {
		return d.err
	}
	d.batches = append(d.batches, records)
	return nil
}

type sliceSource []SpendEntry

func (s sliceSource) Each(_ context.Context, fn func(SpendEntry) error) error {
	for _, e := range s {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

type fakeLocker struct {
	err      error
	released bool
}

func (l *fakeLocker) Acquire(_ context.Context, _ string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released = true }, nil
}

func testRulesConfig() *RulesConfig {
	return &RulesConfig{
		EligibilityThreshold: 1000000,
		SilverThreshold:      5000000,
		GoldThreshold:        20000000,
		MinTierNotify:        TierSilver,
		Workers:              4,
	}
}
