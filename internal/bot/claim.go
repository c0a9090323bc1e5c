package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/model"
)

// selectDestination answers a destination button with a prompt, the reply to
// that prompt is the username on the destination.
func (h *Handler) selectDestination(ctx context.Context, u *tgbotapi.Update) error {
	query := u.CallbackQuery
	destination := strings.TrimPrefix(query.Data, common.DestinationCallbackPrefix)

	chatID := query.From.ID
	if query.Message != nil {
		chatID = query.Message.Chat.ID
	}

	promptID, err := h.caller.SendPrompt(ctx, chatID,
		fmt.Sprintf("Reply to this message with your username on %s.", destination))
	if err != nil {
		return err
	}

	_, err = h.claimDomain.SelectDestination(ctx, &model.SelectDestinationRequest{
		AccountID:   query.From.ID,
		Destination: destination,
		PromptRef:   promptID,
	})
	if err != nil {
		return err
	}

	return h.caller.AnswerCallback(ctx, query.ID, destination)
}

func (h *Handler) submitCredential(ctx context.Context, u *tgbotapi.Update) error {
	msg := u.Message
	resp, err := h.claimDomain.SubmitCredential(ctx, &model.SubmitCredentialRequest{
		AccountID:  msg.From.ID,
		PromptRef:  msg.ReplyToMessage.MessageID,
		Credential: msg.Text,
	})
	if err != nil {
		return err
	}

	if !resp.Consumed {
		return nil
	}

	_, err = h.caller.SendMessage(ctx, msg.Chat.ID, fmt.Sprintf(
		"Thanks! Your username %s on %s is registered with %d genuine referrals.",
		resp.Credential, resp.Destination, resp.QualifyingCount))
	return err
}
