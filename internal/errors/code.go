package errors

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// Spend Tier Service 错误原因定义
// 错误按处理策略分为：
//   配置错误: 启动即失败，不处理任何记录
//   持久化错误: 按记录上报，不影响同批次其他记录
//   参数错误: HTTP 调用方输入不合法
// 校验失败与通知失败只记录日志，不作为错误返回。

const (
	// ReasonConfigurationInvalid 配置缺失或不合法
	ReasonConfigurationInvalid = "CONFIGURATION_INVALID"
	// ReasonPersistenceFailed 决策写入失败
	ReasonPersistenceFailed = "PERSISTENCE_FAILED"
	// ReasonInvalidArgument 请求参数不合法
	ReasonInvalidArgument = "INVALID_ARGUMENT"
	// ReasonDecisionNotFound 决策不存在
	ReasonDecisionNotFound = "DECISION_NOT_FOUND"
	// ReasonLockNotAcquired 汇总任务正在运行
	ReasonLockNotAcquired = "LOCK_NOT_ACQUIRED"
	// ReasonDispatchFailed 校验后批次移交失败
	ReasonDispatchFailed = "DISPATCH_FAILED"
)

// ErrConfiguration 配置错误
func ErrConfiguration(format string, args ...any) *errors.Error {
	return errors.Newf(500, ReasonConfigurationInvalid, format, args...)
}

// ErrPersistence 持久化错误，保留原始 cause
func ErrPersistence(key string, cause error) *errors.Error {
	return errors.InternalServer(ReasonPersistenceFailed, "persist decision "+key).WithCause(cause)
}

// ErrInvalidArgument 参数错误
func ErrInvalidArgument(format string, args ...any) *errors.Error {
	return errors.Newf(400, ReasonInvalidArgument, format, args...)
}

// ErrDecisionNotFound 决策不存在
func ErrDecisionNotFound(key string) *errors.Error {
	return errors.NotFound(ReasonDecisionNotFound, "decision not found: "+key)
}

// ErrLockNotAcquired 汇总锁获取失败
func ErrLockNotAcquired(cause error) *errors.Error {
	return errors.Conflict(ReasonLockNotAcquired, "aggregate run already in progress").WithCause(cause)
}

// ErrDispatch 移交失败
func ErrDispatch(cause error) *errors.Error {
	return errors.ServiceUnavailable(ReasonDispatchFailed, "dispatch validated batch").WithCause(cause)
}

// IsPersistence 判断是否为持久化错误
func IsPersistence(err error) bool {
	return errors.Reason(err) == ReasonPersistenceFailed
}

// IsConfiguration 判断是否为配置错误
func IsConfiguration(err error) bool {
	return errors.Reason(err) == ReasonConfigurationInvalid
}
