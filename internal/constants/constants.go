package constants

// 时间格式常量
const (
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
)

// 默认阈值（单位：最小货币单位）
const (
	// DefaultEligibilityThreshold 单笔交易资格阈值
	DefaultEligibilityThreshold = 1_000_000
	// DefaultSilverThreshold Silver 等级阈值
	DefaultSilverThreshold = 5_000_000
	// DefaultGoldThreshold Gold 等级阈值
	DefaultGoldThreshold = 20_000_000
	// DefaultMinTierNotify 触发通知的最低等级
	DefaultMinTierNotify = "Silver"
	// DefaultWorkers 单批次内并发处理记录数
	DefaultWorkers = 8
)

// Redis Key 前缀常量
const (
	// RedisKeyLatestTier 客户最新等级缓存 key 前缀
	RedisKeyLatestTier = "tier:latest:"
	// RedisKeyAggregateLock 月度汇总运行锁
	RedisKeyAggregateLock = "tier:lock:aggregate"
)

// 通知主题
const (
	// SubjectEligibleTransaction 单笔交易满足资格
	SubjectEligibleTransaction = "New Eligible Transaction"
	// SubjectPromotionEligibility 客户等级达到通知门槛
	SubjectPromotionEligibility = "PromotionEligibility"
)

// RocketMQ 消息属性与标签
const (
	// MessagePropertySubject 通知主题属性名
	MessagePropertySubject = "subject"
	// MessageTagEligibility 交易资格通知标签
	MessageTagEligibility = "eligibility"
	// MessageTagTier 等级通知标签
	MessageTagTier = "tier"
	// MessageTagValidated 校验后交易批次标签
	MessageTagValidated = "validated"
)

// 决策类型（用于指标）
const (
	// DecisionKindEligibility 交易资格决策
	DecisionKindEligibility = "eligibility"
	// DecisionKindTier 客户等级决策
	DecisionKindTier = "tier"
)

// 结果标签（用于指标）
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultValid   = "valid"
	ResultInvalid = "invalid"
)

// 数据来源类型
const (
	// SourceKindCSV 目录中的 csv 对象
	SourceKindCSV = "csv"
	// SourceKindDecisions 已存储的交易资格决策
	SourceKindDecisions = "decisions"
	// DefaultSourcePrefix csv 对象前缀
	DefaultSourcePrefix = "transactions/"
)
