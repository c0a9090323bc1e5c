// Package bot turns telegram updates into domain calls and domain results
// into chat messages.
package bot

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/client"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain"
	"github.com/questx-lab/referral/internal/middleware"
	"github.com/questx-lab/referral/internal/report"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/router"
	"github.com/questx-lab/referral/pkg/xcontext"
)

const (
	CommandStart       = "start"
	CommandMyReferral  = "my_referral"
	CommandLeaderboard = "leaderboard"
	CommandRules       = "rules"
	CommandCurrentWeek = "current_week"
	CommandAskUsername = "ask_username"
	CommandEndWeek     = "end_week"
	CommandEndMonth    = "end_month"
	CommandResetWeek   = "reset_week"
)

type Handler struct {
	caller         client.TelegramCaller
	accountDomain  domain.AccountDomain
	referralDomain domain.ReferralDomain
	claimDomain    domain.ClaimDomain
	closureDomain  domain.ClosureDomain
	renderer       report.Renderer
	router         *router.Router
}

func NewHandler(
	caller client.TelegramCaller,
	accountDomain domain.AccountDomain,
	referralDomain domain.ReferralDomain,
	claimDomain domain.ClaimDomain,
	closureDomain domain.ClosureDomain,
	renderer report.Renderer,
	operatorVerifier *common.OperatorVerifier,
) *Handler {
	h := &Handler{
		caller:         caller,
		accountDomain:  accountDomain,
		referralDomain: referralDomain,
		claimDomain:    claimDomain,
		closureDomain:  closureDomain,
		renderer:       renderer,
	}

	h.loadRouter(operatorVerifier)
	return h
}

func (h *Handler) loadRouter(operatorVerifier *common.OperatorVerifier) {
	h.router = router.New()
	h.router.Use(middleware.Trace())
	h.router.Use(middleware.WithStartTime())
	h.router.AddCloser(middleware.Logger())
	h.router.AddCloser(middleware.Prometheus())
	h.router.AddCloser(h.replyError)

	// Everyone.
	publicRouter := h.router.Branch()
	{
		publicRouter.Command(CommandStart, h.start)
		publicRouter.Command(CommandMyReferral, h.myReferral)
		publicRouter.Command(CommandLeaderboard, h.leaderboard)
		publicRouter.Command(CommandRules, h.rules)
		publicRouter.Command(CommandCurrentWeek, h.currentWeek)
		publicRouter.Callback(common.DestinationCallbackPrefix, h.selectDestination)
		publicRouter.Reply(h.submitCredential)
		publicRouter.ChatMember(h.chatMember)
	}

	// Operators only.
	operatorRouter := h.router.Branch()
	operatorRouter.Before(middleware.NewOnlyOperator(operatorVerifier).Middleware())
	{
		operatorRouter.Command(CommandAskUsername, h.askUsername)
		operatorRouter.Command(CommandEndWeek, h.endWeek)
		operatorRouter.Command(CommandEndMonth, h.endMonth)
		operatorRouter.Command(CommandResetWeek, h.resetWeek)
	}
}

// Handle dispatches a single update. Errors are already reported to the
// chat and the logs when it returns.
func (h *Handler) Handle(ctx context.Context, u *tgbotapi.Update) error {
	_, err := h.router.Dispatch(ctx, u)
	return err
}

// Run handles updates concurrently until ctx is done or the update channel
// is closed, then waits for the running handlers.
func (h *Handler) Run(ctx context.Context) {
	updates := h.caller.Updates(ctx)
	wg := sync.WaitGroup{}
	defer wg.Wait()

	xcontext.Logger(ctx).Infof("Bot @%s is receiving updates", h.caller.Username())
	for {
		select {
		case <-ctx.Done():
			h.caller.StopUpdates()
			return

		case u, ok := <-updates:
			if !ok {
				return
			}

			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				h.Handle(ctx, &u)
			}(u)
		}
	}
}

// replyError tells the account why its update failed. Internal errors are
// reported with the generic message of errorx.Unknown.
func (h *Handler) replyError(ctx context.Context, u *tgbotapi.Update, err error) {
	if err == nil || router.Kind(u) == router.KindChatMember {
		return
	}

	text := errorx.Unknown.Message
	var errx errorx.Error
	if errors.As(err, &errx) {
		text = errx.Message
	}

	if u.CallbackQuery != nil {
		if err := h.caller.AnswerCallback(ctx, u.CallbackQuery.ID, text); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot answer callback: %v", err)
		}
		return
	}

	chatID := router.ChatID(u)
	if chatID == 0 {
		return
	}

	if _, err := h.caller.SendMessage(ctx, chatID, text); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot send error to chat %d: %v", chatID, err)
	}
}
