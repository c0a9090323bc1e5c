package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var DefaultDestinations = []string{
	"winfix.live",
	"autoexch.live",
	"ve567.live",
	"ve777.club",
	"vikrant247.com",
}

func Default() Configs {
	return Configs{
		Env: "local",
		Log: LogConfigs{Level: "info", MaxSizeMB: 100, MaxBackups: 3},
		Database: DatabaseConfigs{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     "3306",
			Database: "referral",
			User:     "referral",
			LogLevel: "error",
		},
		Redis:   RedisConfigs{Addr: "localhost:6379"},
		Metrics: ServerConfigs{Port: "9090"},
		Telegram: TelegramConfigs{
			PollTimeout: 60,
			SendRate:    25,
			SendBurst:   5,
			CallTimeout: 10 * time.Second,
		},
		Referral: ReferralConfigs{
			MinReferralThreshold: 1,
			Destinations:         DefaultDestinations,
			PendingClaimTTL:      time.Hour,
			RevalidateWorkers:    8,
		},
		Retry: RetryConfigs{Attempts: 3, BaseDelay: time.Second},
		Cron: CronConfigs{
			RevalidateInterval:   6 * time.Hour,
			PendingClaimInterval: 10 * time.Minute,
		},
	}
}

// Load reads the toml file at path (optional), then the .env file in the
// working directory (optional), and finally lets environment variables
// override the result.
func Load(path string) (Configs, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Configs{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Configs{}, err
	}

	// A zero threshold would let accounts without referrals qualify.
	if cfg.Referral.MinReferralThreshold < 1 {
		return Configs{}, fmt.Errorf("min referral threshold must be at least 1, got %d",
			cfg.Referral.MinReferralThreshold)
	}

	return cfg, nil
}

func applyEnv(cfg *Configs) error {
	setString(&cfg.Env, "ENV")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Kafka.Addr, "KAFKA_ADDR")
	setString(&cfg.Telegram.BotToken, "BOT_TOKEN")
	setString(&cfg.Telegram.BotName, "BOT_NAME")

	if v, ok := os.LookupEnv("MIN_REFERRAL_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		cfg.Referral.MinReferralThreshold = n
	}

	if v, ok := os.LookupEnv("CHANNEL_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		cfg.Referral.ChannelID = id
	}

	if v, ok := os.LookupEnv("ADMIN_ID"); ok {
		ids := []int64{}
		for _, s := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		cfg.Referral.OperatorIDs = ids
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
