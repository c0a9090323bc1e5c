package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string `toml:"env"`

	Log      LogConfigs      `toml:"log"`
	Database DatabaseConfigs `toml:"database"`
	Redis    RedisConfigs    `toml:"redis"`
	Kafka    KafkaConfigs    `toml:"kafka"`
	Metrics  ServerConfigs   `toml:"metrics"`
	Telegram TelegramConfigs `toml:"telegram"`
	Referral ReferralConfigs `toml:"referral"`
	Retry    RetryConfigs    `toml:"retry"`
	Cron     CronConfigs     `toml:"cron"`
}

type LogConfigs struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type DatabaseConfigs struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	LogLevel string `toml:"log_level"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host,
			d.Port,
			d.User,
			d.Password,
			d.Database,
		)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	}
}

type RedisConfigs struct {
	Addr string `toml:"addr"`
}

type KafkaConfigs struct {
	Addr string `toml:"addr"`
}

type ServerConfigs struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

func (s ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type TelegramConfigs struct {
	BotToken    string        `toml:"bot_token"`
	BotName     string        `toml:"bot_name"`
	Debug       bool          `toml:"debug"`
	PollTimeout int           `toml:"poll_timeout"`
	SendRate    float64       `toml:"send_rate"`
	SendBurst   int           `toml:"send_burst"`
	CallTimeout time.Duration `toml:"call_timeout"`
}

type ReferralConfigs struct {
	MinReferralThreshold int           `toml:"min_referral_threshold"`
	OperatorIDs          []int64       `toml:"operator_ids"`
	ChannelID            int64         `toml:"channel_id"`
	Destinations         []string      `toml:"destinations"`
	PendingClaimTTL      time.Duration `toml:"pending_claim_ttl"`
	RevalidateWorkers    int           `toml:"revalidate_workers"`
}

type RetryConfigs struct {
	Attempts  int           `toml:"attempts"`
	BaseDelay time.Duration `toml:"base_delay"`
}

type CronConfigs struct {
	RevalidateInterval   time.Duration `toml:"revalidate_interval"`
	PendingClaimInterval time.Duration `toml:"pending_claim_interval"`
}
