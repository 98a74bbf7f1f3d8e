package data

import (
	"context"
	"encoding/json"
	"fmt"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/constants"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// mqNotifier 通过 RocketMQ 发布通知，同步等待 broker 确认
type mqNotifier struct {
	data *Data
	log  *log.Helper
}

// NewNotifier 创建通知通道（返回 biz.Notifier 接口）
func NewNotifier(data *Data, logger log.Logger) biz.Notifier {
	return &mqNotifier{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Publish 发布一条通知，subject 作为消息属性携带
func (n *mqNotifier) Publish(ctx context.Context, subject string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := primitive.NewMessage(n.data.topics.notify, body)
	msg.WithTag(notifyTag(subject))
	msg.WithProperty(constants.MessagePropertySubject, subject)

	res, err := n.data.mq.SendSync(ctx, msg)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	if res != nil && res.Status != primitive.SendOK {
		return fmt.Errorf("send notification: status %d", res.Status)
	}
	return nil
}

func notifyTag(subject string) string {
	switch subject {
	case constants.SubjectEligibleTransaction:
		return constants.MessageTagEligibility
	case constants.SubjectPromotionEligibility:
		return constants.MessageTagTier
	default:
		return ""
	}
}

// mqDispatcher 将校验后批次异步投递到规则引擎队列，不等待处理结果
type mqDispatcher struct {
	data *Data
	log  *log.Helper
}

// NewDispatcher 创建校验后批次移交通道（返回 biz.ValidatedDispatcher 接口）
func NewDispatcher(data *Data, logger log.Logger) biz.ValidatedDispatcher {
	return &mqDispatcher{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Dispatch 投递整个批次；只在无法入队时返回错误
func (d *mqDispatcher) Dispatch(ctx context.Context, records []*biz.TransactionRecord) error {
	if d.data.topics.validated == "" {
		return fmt.Errorf("validated topic is not configured")
	}
	body, err := json.Marshal(&biz.ValidatedBatch{ValidRecords: records})
	if err != nil {
		return fmt.Errorf("marshal validated batch: %w", err)
	}
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		keys = append(keys, rec.TransactionID)
	}
	msg := primitive.NewMessage(d.data.topics.validated, body)
	msg.WithTag(constants.MessageTagValidated)
	msg.WithKeys(keys)

	return d.data.mq.SendAsync(ctx, func(_ context.Context, result *primitive.SendResult, err error) {
		if err != nil {
			d.log.Errorf("async dispatch failed: records=%d, error=%v", len(records), err)
			return
		}
		d.log.Infof("dispatched validated batch: records=%d, msg_id=%s", len(records), result.MsgID)
	}, msg)
}
