package middleware

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/router"
)

type OnlyOperator struct {
	operatorVerifier *common.OperatorVerifier
}

func NewOnlyOperator(operatorVerifier *common.OperatorVerifier) *OnlyOperator {
	return &OnlyOperator{operatorVerifier: operatorVerifier}
}

func (a *OnlyOperator) Middleware() router.MiddlewareFunc {
	return func(ctx context.Context, u *tgbotapi.Update) (context.Context, error) {
		sender := router.Sender(u)
		if sender == nil {
			return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
		}

		if err := a.operatorVerifier.Verify(ctx, sender.ID); err != nil {
			return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
		}

		return nil, nil
	}
}
