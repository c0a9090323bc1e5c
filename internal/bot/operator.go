package bot

import (
	"context"
	"fmt"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/client"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/xcontext"
	"golang.org/x/sync/errgroup"
)

const broadcastWorkers = 8

func (h *Handler) currentWeek(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.closureDomain.GetCurrentCycle(ctx, &model.GetCurrentCycleRequest{})
	if err != nil {
		return err
	}

	_, err = h.caller.SendMessage(ctx, u.Message.Chat.ID, fmt.Sprintf(
		"Current week: %d, started on %s.", resp.Cycle, resp.StartedAt.Format(common.ReportDateLayout)))
	return err
}

// askUsername sends the destination choices to every qualifying account. A
// failed delivery does not stop the others.
func (h *Handler) askUsername(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.referralDomain.GetEligibleAccounts(ctx,
		&model.GetEligibleAccountsRequest{OperatorID: u.Message.From.ID})
	if err != nil {
		return err
	}

	choices := []client.Choice{}
	for _, destination := range xcontext.Configs(ctx).Referral.Destinations {
		choices = append(choices, client.Choice{
			Text: destination,
			Data: common.DestinationCallbackPrefix + destination,
		})
	}

	var failed atomic.Int64
	g := errgroup.Group{}
	g.SetLimit(broadcastWorkers)
	for _, account := range resp.Accounts {
		account := account
		g.Go(func() error {
			text := fmt.Sprintf("Congratulations %s, you have %d genuine referrals! "+
				"Choose the website you want your reward on:", account.Name, account.QualifyingCount)
			if _, err := h.caller.SendChoices(ctx, account.AccountID, text, choices); err != nil {
				xcontext.Logger(ctx).Warnf("Cannot ask username of %d: %v", account.AccountID, err)
				failed.Add(1)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	_, err = h.caller.SendMessage(ctx, u.Message.Chat.ID, fmt.Sprintf(
		"Asked %d accounts for their username, %d deliveries failed.",
		len(resp.Accounts), failed.Load()))
	return err
}

func (h *Handler) endWeek(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: u.Message.From.ID})
	if err != nil {
		return err
	}

	doc, err := h.renderer.RenderWeek(resp.Cycle, resp.ClosedAt, resp.Ranking)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot render report of week %d: %v", resp.Cycle, err)
		return err
	}

	caption := fmt.Sprintf("Week %d is closed with %d winners, week %d has started.",
		resp.Cycle, len(resp.Ranking), resp.NextCycle)
	return h.caller.SendDocument(ctx, u.Message.Chat.ID, doc.Filename, doc.Data, caption)
}

func (h *Handler) endMonth(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: u.Message.From.ID})
	if err != nil {
		return err
	}

	doc, err := h.renderer.RenderMonth(resp.Period, resp.ClosedAt, resp.Ranking)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot render report of %s: %v", resp.Period, err)
		return err
	}

	caption := fmt.Sprintf("%s is closed with %d winners, the week counter starts again.",
		resp.Period, len(resp.Ranking))
	return h.caller.SendDocument(ctx, u.Message.Chat.ID, doc.Filename, doc.Data, caption)
}

func (h *Handler) resetWeek(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.closureDomain.ResetCycle(ctx, &model.ResetCycleRequest{OperatorID: u.Message.From.ID})
	if err != nil {
		return err
	}

	_, err = h.caller.SendMessage(ctx, u.Message.Chat.ID,
		fmt.Sprintf("Week counter is reset to %d.", resp.Cycle))
	return err
}
