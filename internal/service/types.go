package service

import (
	"encoding/json"

	"spend-tier-service/internal/biz"
)

// ClassifyRequest 等级计算请求，也接受 {"body": "<json>"} 包装
type ClassifyRequest struct {
	CustomerID   string `json:"customer_id"`
	MonthlySpend int64  `json:"monthly_spend"`
	Body         string `json:"body,omitempty"`
}

// ClassifyReply 等级计算结果
type ClassifyReply struct {
	CustomerID   string   `json:"customer_id"`
	MonthlySpend int64    `json:"monthly_spend"`
	Tier         biz.Tier `json:"tier"`
}

// ValidateRequest 原始交易批次
type ValidateRequest struct {
	Records []json.RawMessage `json:"records"`
}

// ValidateReply 校验结果
type ValidateReply struct {
	Received int `json:"received"`
	Valid    int `json:"valid"`
}

// BatchReply 规则引擎与批量等级处理的结果
type BatchReply struct {
	Status             string   `json:"status"`
	Processed          int      `json:"processed"`
	PersistFailed      int      `json:"persist_failed"`
	NotificationFailed int      `json:"notification_failed"`
	Failed             []string `json:"failed,omitempty"`
}

// BatchRequest 汇总后的客户消费批次
type BatchRequest struct {
	Records []*biz.AggregateRecord `json:"records"`
}

const (
	statusProcessed = "processed"
	statusPartial   = "partial"
)

func toBatchReply(res *biz.BatchResult) *BatchReply {
	reply := &BatchReply{
		Status:             statusProcessed,
		Processed:          res.Processed,
		PersistFailed:      res.Count(biz.OutcomePersistFailed),
		NotificationFailed: res.Count(biz.OutcomeNotificationFailed),
	}
	for _, out := range res.Outcomes {
		if out.Outcome == biz.OutcomePersistFailed {
			reply.Failed = append(reply.Failed, out.Key)
		}
	}
	if reply.PersistFailed > 0 {
		reply.Status = statusPartial
	}
	return reply
}
