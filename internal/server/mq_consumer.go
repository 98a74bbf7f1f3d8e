package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/conf"
	tierErrors "spend-tier-service/internal/errors"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费交易流与校验后批次
type MQConsumerServer struct {
	c         rocketmq.PushConsumer
	validator *biz.ValidatorUseCase
	rules     *biz.RulesEngineUseCase
	conf      *conf.Data
	log       *log.Helper
	enabled   bool
}

// NewMQConsumerServer creates a RocketMQ consumer server
// 配置中关闭时返回不启动的 server；开启后初始化失败是启动错误
func NewMQConsumerServer(c *conf.Data, validator *biz.ValidatorUseCase, rules *biz.RulesEngineUseCase, logger log.Logger) (*MQConsumerServer, error) {
	s := &MQConsumerServer{
		validator: validator,
		rules:     rules,
		conf:      c,
		log:       log.NewHelper(logger),
	}
	if c == nil || c.Rocketmq == nil || !c.Rocketmq.Enabled {
		return s, nil
	}
	if len(c.Rocketmq.NameServers) == 0 {
		return nil, tierErrors.ErrConfiguration("rocketmq name servers are required for the consumer")
	}
	if c.Rocketmq.GroupName == "" {
		return nil, tierErrors.ErrConfiguration("rocketmq group name is required for the consumer")
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Rocketmq.GroupName),
		consumer.WithRetry(int(c.Rocketmq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(100),
	)
	if err != nil {
		s.log.Errorf("init consumer error: %v", err)
		return nil, fmt.Errorf("init rocketmq consumer: %w", err)
	}
	s.c = r
	s.enabled = true
	return s, nil
}

// Start starts the consumer
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}
	if s.c == nil {
		s.log.Warnf("MQConsumerServer consumer is nil, skipping startup")
		return nil
	}

	subscriptions := []struct {
		topic   string
		handler func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error)
	}{
		{s.conf.Rocketmq.RawTopic, s.handleRaw},
		{s.conf.Rocketmq.ValidatedTopic, s.handleValidated},
	}
	for _, sub := range subscriptions {
		if sub.topic == "" {
			continue
		}
		s.log.Infof("Starting MQConsumerServer, topic: %s", sub.topic)
		if err := s.c.Subscribe(sub.topic, consumer.MessageSelector{}, sub.handler); err != nil {
			s.log.Errorf("Failed to subscribe to topic %s: %v", sub.topic, err)
			return err
		}
	}

	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return err
	}
	return nil
}

// Stop stops the consumer
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

// handleRaw 一次拉取的消息视为一个批次，交给校验器
func (s *MQConsumerServer) handleRaw(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	if len(msgs) == 0 {
		return consumer.ConsumeSuccess, nil
	}

	payloads := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		payloads = append(payloads, decodePayload(msg.Body))
	}

	if _, err := s.validator.ValidateAndDispatch(ctx, payloads); err != nil {
		s.log.Errorf("ValidateAndDispatch failed: %v", err)
		return consumer.ConsumeRetryLater, nil
	}
	return consumer.ConsumeSuccess, nil
}

// handleValidated 执行规则引擎；持久化失败时整批重投，通知失败不重投
func (s *MQConsumerServer) handleValidated(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	var records []*biz.TransactionRecord
	for _, msg := range msgs {
		var batch biz.ValidatedBatch
		if err := json.Unmarshal(msg.Body, &batch); err != nil {
			s.log.Errorf("Unmarshal message failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		records = append(records, batch.ValidRecords...)
	}
	if len(records) == 0 {
		return consumer.ConsumeSuccess, nil
	}

	res, err := s.rules.Apply(ctx, records)
	if err != nil {
		s.log.Errorf("Apply failed: %v", err)
		if tierErrors.IsPersistence(err) {
			return consumer.ConsumeRetryLater, nil
		}
	}
	if res != nil {
		s.log.Infof("applied rules to %d records, notification failures: %d", res.Processed, res.Count(biz.OutcomeNotificationFailed))
	}
	return consumer.ConsumeSuccess, nil
}

// decodePayload 流中记录可能是原始 JSON，也可能是 base64 编码的 JSON
func decodePayload(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) {
		return trimmed
	}
	decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
	if err != nil {
		return body
	}
	return decoded
}
