package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/questx-lab/referral/internal/bot"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain/cron"
	"github.com/questx-lab/referral/internal/report"
	"github.com/questx-lab/referral/pkg/prometheus"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func (s *srv) startBot(*cli.Context) error {
	s.loadDatabase()
	s.migrateDB()
	s.loadRedisClient()
	s.loadTelegramCaller()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	cfg := xcontext.Configs(s.ctx)
	handler := bot.NewHandler(
		s.telegramCaller,
		s.accountDomain,
		s.referralDomain,
		s.claimDomain,
		s.closureDomain,
		report.NewCSVRenderer(),
		s.operatorVerifier,
	)

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewRevalidateReferralsCronJob(s.referralDomain, cfg.Cron.RevalidateInterval))
	cronJobManager.Register(cron.NewPrunePendingClaimsCronJob(
		s.tracker, cfg.Referral.PendingClaimTTL, cfg.Cron.PendingClaimInterval))

	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.NewHandler(common.Collectors()...))
	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		xcontext.Logger(ctx).Infof("Starting metrics server on %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		cronJobManager.Start(ctx)
		return nil
	})

	g.Go(func() error {
		handler.Run(ctx)
		return nil
	})

	err := g.Wait()
	xcontext.Logger(s.ctx).Infof("Bot stopped")
	return err
}
