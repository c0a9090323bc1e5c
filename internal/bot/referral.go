package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/xcontext"
)

func (h *Handler) myReferral(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.referralDomain.GetMyStats(ctx, &model.GetMyStatsRequest{AccountID: u.Message.From.ID})
	if err != nil {
		return err
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Genuine referrals: %d\n", resp.QualifyingCount)
	fmt.Fprintf(&b, "Referrals this week: %d\n", resp.NewCount)
	if resp.Rank > 0 {
		fmt.Fprintf(&b, "Rank: #%d\n", resp.Rank)
	} else {
		b.WriteString("Rank: not ranked yet\n")
	}

	if resp.Qualified {
		b.WriteString("You can claim your reward when the operator asks for your username.")
	} else {
		fmt.Fprintf(&b, "You need %d genuine referrals to claim a reward.", resp.Threshold)
	}

	b.WriteString("\n\nYour link: ")
	b.WriteString(h.referralLink(ctx, u.Message.From.ID))

	_, err = h.caller.SendMessage(ctx, u.Message.Chat.ID, b.String())
	return err
}

func (h *Handler) leaderboard(ctx context.Context, u *tgbotapi.Update) error {
	resp, err := h.referralDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{})
	if err != nil {
		return err
	}

	text := "No referrals yet, be the first!"
	if len(resp.Entries) > 0 {
		lines := []string{"Top referrers:"}
		for _, e := range resp.Entries {
			lines = append(lines, fmt.Sprintf("%d. %s: %d", e.Rank, e.Name, e.Count))
		}
		text = strings.Join(lines, "\n")
	}

	_, err = h.caller.SendMessage(ctx, u.Message.Chat.ID, text)
	return err
}

func (h *Handler) rules(ctx context.Context, u *tgbotapi.Update) error {
	threshold := xcontext.Configs(ctx).Referral.MinReferralThreshold
	text := fmt.Sprintf(
		"1. Share your referral link, every friend who joins the channel through it counts.\n"+
			"2. Only real accounts which stay in the channel are counted.\n"+
			"3. You need at least %d genuine referrals in a week to claim a reward.\n"+
			"4. The top referrers of the month win the monthly prize.",
		threshold,
	)

	_, err := h.caller.SendMessage(ctx, u.Message.Chat.ID, text)
	return err
}
