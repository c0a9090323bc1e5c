package main

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain"
	"github.com/questx-lab/referral/pkg/kafka"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startNotifier(*cli.Context) error {
	cfg := xcontext.Configs(s.ctx)
	if cfg.Kafka.Addr == "" {
		return errors.New("kafka is not configured, the bot notifies operators by itself")
	}

	s.loadTelegramCaller()
	subscriber, err := kafka.NewSubscriber(
		"notifier",
		strings.Split(cfg.Kafka.Addr, ","),
		[]string{common.TopicReferralRecorded, common.TopicWeekClosed, common.TopicMonthClosed},
		domain.NewNotifier(s.telegramCaller).Subscribe,
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	xcontext.Logger(ctx).Infof("Notifier is consuming events")
	subscriber.Subscribe(ctx)
	return subscriber.Stop(s.ctx)
}
