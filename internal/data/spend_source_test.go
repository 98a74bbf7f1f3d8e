package data

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/conf"
	"spend-tier-service/internal/constants"
	tierErrors "spend-tier-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSpendSource(t *testing.T) {
	fsys := fstest.MapFS{
		"transactions/2026-09/a.csv": {Data: []byte("\ufeffcustomer_id,amount\nc1,300\nc1,\nc2,50\n")},
		"transactions/2026-09/b.csv": {Data: []byte("amount,customer_id,note\n25,c2,x\nbad,c3\n")},
		"transactions/readme.txt":    {Data: []byte("customer_id,amount\nc9,1000\n")},
		"other/c.csv":                {Data: []byte("customer_id,amount\nc9,1000\n")},
		"transactions/empty.csv":     {Data: []byte("")},
		"transactions/noid.csv":      {Data: []byte("user,amount\nu1,5\n")},
	}
	src := NewCSVSpendSource(fsys, constants.DefaultSourcePrefix, log.DefaultLogger)

	var entries []biz.SpendEntry
	err := src.Each(context.Background(), func(e biz.SpendEntry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	got := biz.Aggregate(entries)
	assert.Equal(t, []*biz.AggregateRecord{
		{CustomerID: "c1", MonthlySpend: 300},
		{CustomerID: "c2", MonthlySpend: 75},
		{CustomerID: "c3", MonthlySpend: 0},
	}, got)
}

func TestCSVSpendSourceCanceled(t *testing.T) {
	fsys := fstest.MapFS{
		"transactions/a.csv": {Data: []byte("customer_id,amount\nc1,1\n")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewCSVSpendSource(fsys, "transactions/", log.DefaultLogger).Each(ctx, func(biz.SpendEntry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviousMonth(t *testing.T) {
	from, to := previousMonth(time.Date(2026, time.January, 1, 0, 10, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), to)

	from, _ = previousMonth(time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.February, from.Month())
}

func TestNewSpendSource(t *testing.T) {
	_, err := NewSpendSource(&conf.Bootstrap{Source: &conf.Source{Kind: "csv"}}, &Data{}, log.DefaultLogger)
	require.Error(t, err)
	assert.True(t, tierErrors.IsConfiguration(err))

	_, err = NewSpendSource(&conf.Bootstrap{Source: &conf.Source{Kind: "s3"}}, &Data{}, log.DefaultLogger)
	assert.True(t, tierErrors.IsConfiguration(err))

	src, err := NewSpendSource(&conf.Bootstrap{Source: &conf.Source{Root: t.TempDir()}}, &Data{}, log.DefaultLogger)
	require.NoError(t, err)
	assert.NotNil(t, src)
}
