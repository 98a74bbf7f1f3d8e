package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

const (
	defaultAggregateSpec    = "0 10 0 1 * *"
	defaultAggregateTimeout = 10 * time.Minute
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	if err := bc.ApplyEnv(); err != nil {
		panic(err)
	}

	// 初始化日志 (使用 go-pkg/logger)
	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/spend-tier-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}

	loggerInstance := logger.NewLogger(logConfig)

	// 添加基本字段
	loggerInstance = log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "spend-tier-cron",
	)

	logHelper := log.NewHelper(loggerInstance)

	// 初始化应用
	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	spec, timeout := defaultAggregateSpec, defaultAggregateTimeout
	if bc.Cron != nil {
		if bc.Cron.AggregateSpec != "" {
			spec = bc.Cron.AggregateSpec
		}
		if d := bc.Cron.Timeout.AsDuration(); d > 0 {
			timeout = d
		}
	}

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 月度消费汇总与等级评定 - 默认每月1日 00:10 执行，处理上一个自然月
	_, err = cronScheduler.AddFunc(spec, func() {
		logHelper.Info("[CRON] Starting monthly spend aggregation...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := app.tierRun.Run(ctx)
		if res == nil {
			logHelper.Errorf("[CRON] Error running monthly aggregation: %v", err)
			return
		}
		if err != nil {
			logHelper.Errorf("[CRON] Monthly aggregation finished with persist failures: %v", err)
		}
		logHelper.Infof("[CRON] Monthly aggregation completed: processed=%d, persist_failed=%d, notify_failed=%d",
			res.Processed, res.Count(biz.OutcomePersistFailed), res.Count(biz.OutcomeNotificationFailed))
	})
	if err != nil {
		logHelper.Errorf("Failed to add monthly aggregation job: %v", err)
		return
	}

	// 启动定时任务
	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Info("Scheduled jobs:")
	logHelper.Infof("  - Monthly spend aggregation: %s", spec)
	logHelper.Info("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
}
