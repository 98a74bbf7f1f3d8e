package server

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"spend-tier-service/internal/conf"
	tierErrors "spend-tier-service/internal/errors"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(bodies ...string) []*primitive.MessageExt {
	msgs := make([]*primitive.MessageExt, 0, len(bodies))
	for _, b := range bodies {
		msgs = append(msgs, &primitive.MessageExt{Message: primitive.Message{Body: []byte(b)}})
	}
	return msgs
}

func newTestConsumer(t *testing.T, h *harness) *MQConsumerServer {
	t.Helper()
	s, err := NewMQConsumerServer(&conf.Data{}, h.validator, h.rules, log.DefaultLogger)
	require.NoError(t, err)
	return s
}

func TestMQConsumerDisabled(t *testing.T) {
	s := newTestConsumer(t, newHarness())
	assert.False(t, s.enabled)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestMQConsumerInitFailureIsFatal(t *testing.T) {
	h := newHarness()
	tests := []struct {
		name string
		mq   *conf.Data_Rocketmq
	}{
		{"NoNameServers", &conf.Data_Rocketmq{Enabled: true, GroupName: "spend-tier"}},
		{"NoGroupName", &conf.Data_Rocketmq{Enabled: true, NameServers: []string{"127.0.0.1:9876"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMQConsumerServer(&conf.Data{Rocketmq: tt.mq}, h.validator, h.rules, log.DefaultLogger)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, tierErrors.IsConfiguration(err))
		})
	}
}

func TestHandleRaw(t *testing.T) {
	ctx := context.Background()
	record := `{"transaction_id":"t1","customer_id":"c1","amount":5,"timestamp":1}`

	t.Run("RawAndBase64Framing", func(t *testing.T) {
		h := newHarness()
		s := newTestConsumer(t, h)
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"transaction_id":"t2","customer_id":"c2","amount":7,"timestamp":2}`))

		res, err := s.handleRaw(ctx, messages(record, encoded, "%%%")...)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeSuccess, res)
		require.Len(t, h.dispatcher.Batches, 1)
		batch := h.dispatcher.Batches[0]
		require.Len(t, batch, 2)
		assert.Equal(t, "t1", batch[0].TransactionID)
		assert.Equal(t, "t2", batch[1].TransactionID)
	})

	t.Run("DispatchFailureRetries", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Err = errors.New("broker down")
		res, err := newTestConsumer(t, h).handleRaw(ctx, messages(record)...)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeRetryLater, res)
	})

	t.Run("Empty", func(t *testing.T) {
		res, err := newTestConsumer(t, newHarness()).handleRaw(ctx)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeSuccess, res)
	})
}

func TestHandleValidated(t *testing.T) {
	ctx := context.Background()
	body := `{"valid_records":[{"transaction_id":"t1","customer_id":"c1","amount":2000000,"timestamp":1}]}`

	t.Run("AppliesRules", func(t *testing.T) {
		h := newHarness()
		res, err := newTestConsumer(t, h).handleValidated(ctx, messages(body, "not json")...)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeSuccess, res)
		assert.True(t, h.decisions.Saved["t1"].Eligible)
		assert.Equal(t, 1, h.notifier.Count())
	})

	t.Run("NotificationFailureDoesNotRetry", func(t *testing.T) {
		h := newHarness()
		h.notifier.Err = errors.New("topic gone")
		res, err := newTestConsumer(t, h).handleValidated(ctx, messages(body)...)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeSuccess, res)
		assert.Contains(t, h.decisions.Saved, "t1")
	})

	t.Run("NullRecordsSkipped", func(t *testing.T) {
		h := newHarness()
		res, err := newTestConsumer(t, h).handleValidated(ctx, messages(`{"valid_records":[null]}`, body)...)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeSuccess, res)
		assert.Len(t, h.decisions.Saved, 1)
	})

	t.Run("PersistFailureRetries", func(t *testing.T) {
		h := newHarness()
		h.decisions.SaveErr = errors.New("db down")
		res, err := newTestConsumer(t, h).handleValidated(ctx, messages(body)...)
		require.NoError(t, err)
		assert.Equal(t, consumer.ConsumeRetryLater, res)
	})
}

func TestDecodePayload(t *testing.T) {
	raw := `{"a":1}`
	assert.Equal(t, []byte(raw), decodePayload([]byte(" "+raw+"\n")))
	assert.Equal(t, []byte(raw), decodePayload([]byte(base64.StdEncoding.EncodeToString([]byte(raw)))))
	assert.Equal(t, []byte("%%%"), decodePayload([]byte("%%%")))
}
