package conf

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Bootstrap 服务启动配置
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Rules  *Rules  `json:"rules"`
	Source *Source `json:"source"`
	Cron   *Cron   `json:"cron"`
}

// Server 传输层配置
type Server struct {
	Http *Server_HTTP `json:"http"`
}

// Server_HTTP HTTP 服务配置
type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

// Data 数据层配置
type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Rocketmq *Data_Rocketmq `json:"rocketmq"`
}

// Data_Database 决策存储
type Data_Database struct {
	Driver      string `json:"driver"`
	Source      string `json:"source" env:"DATABASE_SOURCE"`
	AutoMigrate bool   `json:"auto_migrate"`
}

// Data_Redis 缓存与分布式锁
type Data_Redis struct {
	Addr         string    `json:"addr" env:"REDIS_ADDR"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
	CacheTTL     *Duration `json:"cache_ttl"`
}

// Data_Rocketmq 交易流入口、校验后移交队列与通知出口
type Data_Rocketmq struct {
	Enabled        bool     `json:"enabled"`
	NameServers    []string `json:"name_servers" env:"ROCKETMQ_NAME_SERVERS" envSeparator:","`
	GroupName      string   `json:"group_name"`
	RetryTimes     int32    `json:"retry_times"`
	RawTopic       string   `json:"raw_topic"`
	ValidatedTopic string   `json:"validated_topic"`
	NotifyTopic    string   `json:"notify_topic" env:"NOTIFY_TOPIC"`
}

// Rules 阈值配置，启动时读取一次
// 阈值为 nil 表示未配置，0 是合法的阈值
type Rules struct {
	EligibilityThreshold *int64 `json:"eligibility_threshold" env:"ELIGIBILITY_THRESHOLD"`
	SilverThreshold      *int64 `json:"silver_threshold" env:"SILVER_THRESHOLD"`
	GoldThreshold        *int64 `json:"gold_threshold" env:"GOLD_THRESHOLD"`
	MinTierNotify        string `json:"min_tier_notify" env:"MIN_TIER_NOTIFY"`
	Workers              int    `json:"workers" env:"RULES_WORKERS"`
}

// Source 月度汇总的数据来源
type Source struct {
	// Kind: csv 读取目录下的 csv 对象; decisions 读取已存储的交易决策
	Kind   string `json:"kind" env:"SOURCE_KIND"`
	Root   string `json:"root" env:"DATA_BUCKET"`
	Prefix string `json:"prefix"`
}

// Cron 定时任务配置
type Cron struct {
	AggregateSpec string    `json:"aggregate_spec"`
	Timeout       *Duration `json:"timeout"`
}

// Duration 支持 "1s"、"500ms" 形式的字符串
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// AsDuration 返回 time.Duration，nil 时为 0
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

// ApplyEnv 用环境变量覆盖文件配置（只覆盖已设置的变量）
func (b *Bootstrap) ApplyEnv() error {
	if b.Rules == nil {
		b.Rules = &Rules{}
	}
	if b.Source == nil {
		b.Source = &Source{}
	}
	if b.Data == nil {
		b.Data = &Data{}
	}
	if b.Data.Database == nil {
		b.Data.Database = &Data_Database{}
	}
	if b.Data.Redis == nil {
		b.Data.Redis = &Data_Redis{}
	}
	if b.Data.Rocketmq == nil {
		b.Data.Rocketmq = &Data_Rocketmq{}
	}
	targets := []any{b.Rules, b.Source, b.Data.Database, b.Data.Redis, b.Data.Rocketmq}
	for _, target := range targets {
		if err := env.Parse(target); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}
