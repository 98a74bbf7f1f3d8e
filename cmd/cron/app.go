package main

import "spend-tier-service/internal/biz"

// CronApp Cron 应用结构
type CronApp struct {
	tierRun *biz.TierRunUseCase
}
