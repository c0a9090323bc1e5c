package client

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/config"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/pkg/retry"
	"github.com/questx-lab/referral/pkg/xcontext"
	"golang.org/x/exp/slices"
	"golang.org/x/time/rate"
)

var memberStatuses = []string{"member", "administrator", "creator"}

type MembershipOracle interface {
	IsMember(ctx context.Context, channelID, accountID int64) (bool, error)
}

type ProfileLookup interface {
	HasProfilePhoto(ctx context.Context, accountID int64) (bool, error)
}

type Choice struct {
	Text string
	Data string
}

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	SendChoices(ctx context.Context, chatID int64, text string, choices []Choice) (int, error)
	// SendPrompt asks for a free text answer and returns the id of the prompt
	// message, replies to it carry that id.
	SendPrompt(ctx context.Context, chatID int64, text string) (int, error)
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type TelegramCaller interface {
	MembershipOracle
	ProfileLookup
	Messenger

	Updates(ctx context.Context) tgbotapi.UpdatesChannel
	StopUpdates()
	Username() string
}

type telegramCaller struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	policy  retry.Policy
}

func NewTelegramCaller(cfg config.Configs) (*telegramCaller, error) {
	httpClient := &http.Client{Timeout: cfg.Telegram.CallTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, err
	}

	bot.Debug = cfg.Telegram.Debug

	return &telegramCaller{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(cfg.Telegram.SendRate), cfg.Telegram.SendBurst),
		policy:  retry.Policy{Attempts: cfg.Retry.Attempts, BaseDelay: cfg.Retry.BaseDelay},
	}, nil
}

func (c *telegramCaller) Username() string {
	return c.bot.Self.UserName
}

func (c *telegramCaller) Updates(ctx context.Context) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = xcontext.Configs(ctx).Telegram.PollTimeout
	u.AllowedUpdates = []string{"message", "callback_query", "chat_member"}
	return c.bot.GetUpdatesChan(u)
}

func (c *telegramCaller) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *telegramCaller) IsMember(ctx context.Context, channelID, accountID int64) (bool, error) {
	var status string
	err := retry.Do(ctx, c.policy, func() error {
		member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: channelID, UserID: accountID},
		})
		if err != nil {
			return err
		}

		status = member.Status
		return nil
	})
	if err != nil {
		common.Inc(common.OracleCallTotal, "is_member", "error")
		return false, err
	}

	common.Inc(common.OracleCallTotal, "is_member", "ok")
	return slices.Contains(memberStatuses, status), nil
}

func (c *telegramCaller) HasProfilePhoto(ctx context.Context, accountID int64) (bool, error) {
	var total int
	err := retry.Do(ctx, c.policy, func() error {
		photos, err := c.bot.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{
			UserID: accountID,
			Limit:  1,
		})
		if err != nil {
			return err
		}

		total = photos.TotalCount
		return nil
	})
	if err != nil {
		common.Inc(common.OracleCallTotal, "profile_photo", "error")
		return false, err
	}

	common.Inc(common.OracleCallTotal, "profile_photo", "ok")
	return total > 0, nil
}

func (c *telegramCaller) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	return c.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (c *telegramCaller) SendChoices(
	ctx context.Context, chatID int64, text string, choices []Choice,
) (int, error) {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, choice := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(choice.Text, choice.Data),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return c.send(ctx, msg)
}

func (c *telegramCaller) SendPrompt(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	return c.send(ctx, msg)
}

func (c *telegramCaller) SendDocument(
	ctx context.Context, chatID int64, filename string, data []byte, caption string,
) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := c.send(ctx, doc)
	return err
}

func (c *telegramCaller) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (c *telegramCaller) send(ctx context.Context, msg tgbotapi.Chattable) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}
