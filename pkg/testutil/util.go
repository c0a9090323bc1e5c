package testutil

import (
	"context"
	"time"

	"github.com/questx-lab/referral/config"
	"github.com/questx-lab/referral/migration"
	"github.com/questx-lab/referral/pkg/logger"
	"github.com/questx-lab/referral/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	Operator1 int64 = 9000
	ChannelID int64 = -1001190544004
)

func MockConfigs() config.Configs {
	cfg := config.Default()
	cfg.Referral.MinReferralThreshold = 3
	cfg.Referral.OperatorIDs = []int64{Operator1}
	cfg.Referral.ChannelID = ChannelID
	cfg.Retry = config.RetryConfigs{Attempts: 3, BaseDelay: time.Millisecond}
	return cfg
}

// MockContext returns a context holding test configs, a silent logger and a
// migrated in-memory sqlite database.
func MockContext() context.Context {
	return MockContextWithConfigs(MockConfigs())
}

func MockContextWithConfigs(cfg config.Configs) context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic(err)
	}

	// Every connection of an in-memory sqlite database is a new database.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)

	if err := migration.Migrate(ctx); err != nil {
		panic(err)
	}

	return ctx
}
