package data

import (
	"context"
	"time"

	"spend-tier-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// aggregateLockExpiry 需覆盖一次完整运行
const aggregateLockExpiry = 30 * time.Minute

// runLocker 基于 redsync 的运行锁
type runLocker struct {
	sync *redsync.Redsync
	log  *log.Helper
}

// NewRunLocker 创建运行锁（返回 biz.RunLocker 接口）
func NewRunLocker(sync *redsync.Redsync, logger log.Logger) biz.RunLocker {
	return &runLocker{
		sync: sync,
		log:  log.NewHelper(logger),
	}
}

// Acquire 只尝试一次，已被占用时立即返回错误
func (l *runLocker) Acquire(ctx context.Context, name string) (func(), error) {
	mutex := l.sync.NewMutex(name, redsync.WithExpiry(aggregateLockExpiry), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	release := func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			l.log.Warnf("failed to release lock %s: %v", name, err)
		}
	}
	return release, nil
}
