package biz

import (
	"context"
	"errors"
	"testing"

	tierErrors "spend-tier-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorUseCase_Validate(t *testing.T) {
	uc := NewValidatorUseCase(&fakeDispatcher{}, log.DefaultLogger)
	ctx := context.Background()

	t.Run("EmptyBatch", func(t *testing.T) {
		assert.Empty(t, uc.Validate(ctx, nil))
	})

	t.Run("KeepsValidInOrder", func(t *testing.T) {
		payloads := [][]byte{
			[]byte(`{"transaction_id":"t1","customer_id":"c1","amount":10,"timestamp":1}`),
			[]byte(`{"transaction_id":"t2","customer_id":"c1","timestamp":2}`),
			[]byte(`not json`),
			[]byte(`{"transaction_id":"t3","customer_id":"c2","amount":0,"timestamp":0}`),
			[]byte(`{"transaction_id":"t4","customer_id":"c2","amount":-5,"timestamp":3}`),
		}
		got := uc.Validate(ctx, payloads)
		require.Len(t, got, 2)
		assert.Equal(t, "t1", got[0].TransactionID)
		assert.Equal(t, "t3", got[1].TransactionID)
		assert.Equal(t, int64(0), got[1].Amount)
	})

	t.Run("NullFieldIsDropped", func(t *testing.T) {
		for _, p := range []string{
			`{"transaction_id":"t1","customer_id":"c1","amount":null,"timestamp":1}`,
			`{"transaction_id":null,"customer_id":"c1","amount":10,"timestamp":1}`,
			`{"transaction_id":"t1","customer_id":null,"amount":10,"timestamp":1}`,
			`{"transaction_id":"t1","customer_id":"c1","amount":10,"timestamp":null}`,
		} {
			assert.Empty(t, uc.Validate(ctx, [][]byte{[]byte(p)}), p)
		}
	})

	t.Run("EmptyStringIsPresent", func(t *testing.T) {
		got := uc.Validate(ctx, [][]byte{[]byte(`{"transaction_id":"","customer_id":"","amount":0,"timestamp":0}`)})
		assert.Len(t, got, 1)
	})

	t.Run("MissingFieldIsDropped", func(t *testing.T) {
		for _, p := range []string{
			`{"customer_id":"c1","amount":10,"timestamp":1}`,
			`{"transaction_id":"t1","amount":10,"timestamp":1}`,
			`{"transaction_id":"t1","customer_id":"c1","amount":10}`,
		} {
			assert.Empty(t, uc.Validate(ctx, [][]byte{[]byte(p)}), p)
		}
	})
}

func TestValidatorUseCase_ValidateAndDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("AllInvalidDispatchesNothing", func(t *testing.T) {
		d := &fakeDispatcher{}
		uc := NewValidatorUseCase(d, log.DefaultLogger)
		n, err := uc.ValidateAndDispatch(ctx, [][]byte{[]byte(`{}`)})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Empty(t, d.batches)
	})

	t.Run("DispatchesValidSubset", func(t *testing.T) {
		d := &fakeDispatcher{}
		uc := NewValidatorUseCase(d, log.DefaultLogger)
		n, err := uc.ValidateAndDispatch(ctx, [][]byte{
			[]byte(`{"transaction_id":"t1","customer_id":"c1","amount":10,"timestamp":1}`),
			[]byte(`{"transaction_id":"t2"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, d.batches, 1)
		assert.Equal(t, "t1", d.batches[0][0].TransactionID)
	})

	t.Run("DispatchFailure", func(t *testing.T) {
		uc := NewValidatorUseCase(&fakeDispatcher{err: errors.New("broker down")}, log.DefaultLogger)
		_, err := uc.ValidateAndDispatch(ctx, [][]byte{
			[]byte(`{"transaction_id":"t1","customer_id":"c1","amount":10,"timestamp":1}`),
		})
		require.Error(t, err)
		assert.Equal(t, tierErrors.ReasonDispatchFailed, kratosReason(err))
	})
}
