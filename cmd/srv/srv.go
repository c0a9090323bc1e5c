package main

import (
	"context"
	"strings"

	"github.com/questx-lab/referral/config"
	"github.com/questx-lab/referral/internal/client"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain"
	"github.com/questx-lab/referral/internal/domain/pendingclaim"
	"github.com/questx-lab/referral/internal/domain/statistic"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/migration"
	"github.com/questx-lab/referral/pkg/kafka"
	"github.com/questx-lab/referral/pkg/logger"
	"github.com/questx-lab/referral/pkg/pubsub"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/questx-lab/referral/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app *cli.App
	ctx context.Context

	telegramCaller client.TelegramCaller
	redisClient    xredis.Client
	publisher      pubsub.Publisher
	tracker        *pendingclaim.Tracker

	accountRepo       repository.AccountRepository
	referralRepo      repository.ReferralRepository
	claimRepo         repository.ClaimRepository
	weeklyRecordRepo  repository.WeeklyRecordRepository
	monthlyRecordRepo repository.MonthlyRecordRepository
	weekCounterRepo   repository.WeekCounterRepository

	accountDomain  domain.AccountDomain
	referralDomain domain.ReferralDomain
	claimDomain    domain.ClaimDomain
	closureDomain  domain.ClosureDomain

	operatorVerifier *common.OperatorVerifier
}

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.loadLogger()
	return nil
}

func (s *srv) loadLogger() {
	cfg := xcontext.Configs(s.ctx)
	s.ctx = xcontext.WithLogger(s.ctx, logger.New(logger.Options{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Production: cfg.Env != "local",
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}))
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.ConnectionString())
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnectionString())
	default:
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(), // data source name
			DefaultStringSize:         256,                    // default size for string fields
			DisableDatetimePrecision:  true,                   // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,                   // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,                   // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false,                  // auto configure based on currently MySQL version
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		panic(err)
	}

	return db
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Error
	}
}

func (s *srv) loadDatabase() {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
}

func (s *srv) migrateDB() {
	if err := migration.Migrate(s.ctx); err != nil {
		panic(err)
	}
}

// loadRedisClient leaves the leaderboard on the database when no redis is
// configured or reachable.
func (s *srv) loadRedisClient() {
	if xcontext.Configs(s.ctx).Redis.Addr == "" {
		return
	}

	redisClient, err := xredis.NewClient(s.ctx)
	if err != nil {
		xcontext.Logger(s.ctx).Warnf("Cannot connect to redis, leaderboard is served by database: %v", err)
		return
	}

	s.redisClient = redisClient
}

func (s *srv) loadTelegramCaller() {
	caller, err := client.NewTelegramCaller(xcontext.Configs(s.ctx))
	if err != nil {
		panic(err)
	}

	s.telegramCaller = caller
}

// loadPublisher sends events to kafka when a broker is configured, otherwise
// they are delivered to the operators in process.
func (s *srv) loadPublisher() {
	addr := xcontext.Configs(s.ctx).Kafka.Addr
	if addr == "" {
		s.publisher = pubsub.NewLocalPublisher(domain.NewNotifier(s.telegramCaller).Subscribe)
		return
	}

	publisher, err := kafka.NewPublisher(xcontext.Configs(s.ctx).Telegram.BotName, strings.Split(addr, ","))
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
}

func (s *srv) loadRepos() {
	s.accountRepo = repository.NewAccountRepository()
	s.referralRepo = repository.NewReferralRepository()
	s.claimRepo = repository.NewClaimRepository()
	s.weeklyRecordRepo = repository.NewWeeklyRecordRepository()
	s.monthlyRecordRepo = repository.NewMonthlyRecordRepository()
	s.weekCounterRepo = repository.NewWeekCounterRepository()
}

func (s *srv) loadDomains() {
	leaderboard := statistic.New(s.referralRepo, s.redisClient)
	s.operatorVerifier = common.NewOperatorVerifier()
	s.tracker = pendingclaim.NewTracker()

	s.accountDomain = domain.NewAccountDomain(s.accountRepo)
	s.referralDomain = domain.NewReferralDomain(
		s.accountRepo,
		s.referralRepo,
		s.telegramCaller,
		domain.NewRealityHeuristic(s.telegramCaller),
		leaderboard,
		s.publisher,
		s.operatorVerifier,
	)
	s.claimDomain = domain.NewClaimDomain(s.claimRepo, s.referralDomain, s.tracker)
	s.closureDomain = domain.NewClosureDomain(
		s.accountRepo,
		s.referralRepo,
		s.claimRepo,
		s.weeklyRecordRepo,
		s.monthlyRecordRepo,
		s.weekCounterRepo,
		leaderboard,
		s.publisher,
		s.operatorVerifier,
	)
}
