package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/xcontext"
	"golang.org/x/exp/slices"
)

// Telegram keeps deleted accounts around under this name.
const deletedAccountName = "Deleted Account"

var (
	memberStatuses   = []string{"member", "administrator", "creator", "restricted"}
	departedStatuses = []string{"left", "kicked"}
)

func snapshotOf(user *tgbotapi.User) model.AccountSnapshot {
	return model.AccountSnapshot{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Handle:    user.UserName,
		IsDeleted: user.FirstName == deletedAccountName && user.UserName == "",
	}
}

// start registers the sender. With a payload, the sender arrived through the
// referral link of the account named by the payload.
func (h *Handler) start(ctx context.Context, u *tgbotapi.Update) error {
	msg := u.Message
	snapshot := snapshotOf(msg.From)

	notice := ""
	if payload := strings.TrimSpace(msg.CommandArguments()); payload != "" {
		referrerID, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return errorx.New(errorx.BadRequest, "Invalid referral link")
		}

		_, err = h.referralDomain.Refer(ctx, &model.ReferRequest{
			ReferrerID: referrerID,
			Referred:   snapshot,
		})
		switch {
		case err == nil:
			notice = "Your referral is recorded, welcome!\n\n"

		case errorx.Is(err, errorx.SelfReferral),
			errorx.Is(err, errorx.AlreadyReferred),
			errorx.Is(err, errorx.ReferrerUnknown):
			xcontext.Logger(ctx).Debugf("Referral of %d by %d is rejected: %v", snapshot.ID, referrerID, err)
			notice = fmt.Sprintf("%s.\n\n", err.Error())

		default:
			return err
		}
	}

	if _, err := h.accountDomain.Register(ctx, &model.RegisterAccountRequest{Account: snapshot}); err != nil {
		return err
	}

	text := fmt.Sprintf("%sShare your referral link with your friends:\n%s",
		notice, h.referralLink(ctx, snapshot.ID))
	_, err := h.caller.SendMessage(ctx, msg.Chat.ID, text)
	return err
}

func (h *Handler) referralLink(ctx context.Context, accountID int64) string {
	botName := xcontext.Configs(ctx).Telegram.BotName
	if botName == "" {
		botName = h.caller.Username()
	}

	return fmt.Sprintf("https://t.me/%s?start=%d", botName, accountID)
}

// chatMember follows the channel membership. Leaving marks the account as
// departed, coming back restores it.
func (h *Handler) chatMember(ctx context.Context, u *tgbotapi.Update) error {
	update := u.ChatMember
	if update.Chat.ID != xcontext.Configs(ctx).Referral.ChannelID {
		return nil
	}

	user := update.NewChatMember.User
	if user == nil {
		return nil
	}

	oldStatus := update.OldChatMember.Status
	newStatus := update.NewChatMember.Status

	switch {
	case slices.Contains(departedStatuses, newStatus):
		_, err := h.accountDomain.MarkDeparted(ctx, &model.MarkDepartedRequest{AccountID: user.ID})
		if errorx.Is(err, errorx.NotFound) {
			// Never used the bot.
			return nil
		}
		return err

	case slices.Contains(memberStatuses, newStatus) && slices.Contains(departedStatuses, oldStatus):
		_, err := h.accountDomain.Register(ctx, &model.RegisterAccountRequest{Account: snapshotOf(user)})
		return err
	}

	return nil
}
