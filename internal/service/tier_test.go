package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/biz/biztest"
	tierErrors "spend-tier-service/internal/errors"

	kratosErrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc        *TierService
	dispatcher *biztest.Dispatcher
	decisions  *biztest.EligibilityRepo
	tiers      *biztest.TierRepo
	notifier   *biztest.Notifier
}

func newFixture(source biztest.Source) *fixture {
	f := &fixture{
		dispatcher: &biztest.Dispatcher{},
		decisions:  biztest.NewEligibilityRepo(),
		tiers:      biztest.NewTierRepo(),
		notifier:   &biztest.Notifier{},
	}
	rc := biztest.RulesConfig()
	logger := log.DefaultLogger
	batch := biz.NewBatchEligibilityUseCase(f.tiers, f.notifier, rc, logger)
	f.svc = NewTierService(
		biz.NewValidatorUseCase(f.dispatcher, logger),
		biz.NewRulesEngineUseCase(f.decisions, f.notifier, rc, logger),
		batch,
		biz.NewTierRunUseCase(biz.NewAggregateUseCase(source, logger), batch, biztest.Locker{}, logger),
		rc,
		logger,
	)
	return f
}

func TestTierService_Classify(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	reply, err := f.svc.Classify(ctx, &ClassifyRequest{CustomerID: "c1", MonthlySpend: 20000000})
	require.NoError(t, err)
	assert.Equal(t, biz.TierGold, reply.Tier)

	reply, err = f.svc.Classify(ctx, &ClassifyRequest{Body: `{"customer_id":"c2","monthly_spend":5000000}`})
	require.NoError(t, err)
	assert.Equal(t, "c2", reply.CustomerID)
	assert.Equal(t, biz.TierSilver, reply.Tier)

	_, err = f.svc.Classify(ctx, &ClassifyRequest{Body: `{`})
	assert.Equal(t, tierErrors.ReasonInvalidArgument, kratosErrors.Reason(err))

	_, err = f.svc.Classify(ctx, &ClassifyRequest{MonthlySpend: -1})
	assert.Equal(t, tierErrors.ReasonInvalidArgument, kratosErrors.Reason(err))
}

func TestTierService_ValidateTransactions(t *testing.T) {
	f := newFixture(nil)
	reply, err := f.svc.ValidateTransactions(context.Background(), &ValidateRequest{Records: []json.RawMessage{
		json.RawMessage(`{"transaction_id":"t1","customer_id":"c1","amount":1,"timestamp":1}`),
		json.RawMessage(`{"transaction_id":"t2"}`),
	}})
	require.NoError(t, err)
	assert.Equal(t, &ValidateReply{Received: 2, Valid: 1}, reply)
	assert.Len(t, f.dispatcher.Batches, 1)
}

func TestTierService_ApplyRules(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	reply, err := f.svc.ApplyRules(ctx, &biz.ValidatedBatch{ValidRecords: []*biz.TransactionRecord{
		{TransactionID: "t1", CustomerID: "c1", Amount: 1000000, Timestamp: 100},
	}})
	require.NoError(t, err)
	assert.Equal(t, statusProcessed, reply.Status)
	assert.Equal(t, 1, reply.Processed)
	assert.Equal(t, 1, f.notifier.Count())

	got, err := f.svc.GetEligibility(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Eligible)

	f.decisions.SaveErr = errors.New("disk full")
	reply, err = f.svc.ApplyRules(ctx, &biz.ValidatedBatch{ValidRecords: []*biz.TransactionRecord{
		{TransactionID: "t2", CustomerID: "c1", Amount: 1, Timestamp: 100},
	}})
	require.NoError(t, err)
	assert.Equal(t, statusPartial, reply.Status)
	assert.Equal(t, []string{"t2"}, reply.Failed)
}

func TestTierService_ProcessAndLookup(t *testing.T) {
	f := newFixture(biztest.Source{
		{CustomerID: "c1", Amount: "300"},
		{CustomerID: "c1"},
	})
	ctx := context.Background()

	reply, err := f.svc.ProcessTiers(ctx, &BatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, reply.Processed)

	reply, err = f.svc.RunAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Processed)

	d, err := f.svc.GetTier(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), d.MonthlySpend)
	assert.Equal(t, biz.TierBronze, d.Tier)

	_, err = f.svc.GetTier(ctx, "unknown")
	assert.True(t, kratosErrors.IsNotFound(err))
	_, err = f.svc.GetTier(ctx, "")
	assert.True(t, kratosErrors.IsBadRequest(err))
	_, err = f.svc.GetEligibility(ctx, "missing")
	assert.True(t, kratosErrors.IsNotFound(err))
}

func TestTierService_RunAggregateLockHeld(t *testing.T) {
	rc := biztest.RulesConfig()
	logger := log.DefaultLogger
	batch := biz.NewBatchEligibilityUseCase(biztest.NewTierRepo(), &biztest.Notifier{}, rc, logger)
	svc := NewTierService(nil, nil, batch,
		biz.NewTierRunUseCase(biz.NewAggregateUseCase(biztest.Source{}, logger), batch, biztest.Locker{Err: errors.New("taken")}, logger),
		rc, logger)

	_, err := svc.RunAggregate(context.Background())
	assert.True(t, kratosErrors.IsConflict(err))
}
