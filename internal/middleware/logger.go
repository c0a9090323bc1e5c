package middleware

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/router"
	"github.com/questx-lab/referral/pkg/xcontext"
)

func Logger() router.CloserFunc {
	return func(ctx context.Context, u *tgbotapi.Update, err error) {
		info := fmt.Sprintf("%s | %d", router.Kind(u), u.UpdateID)
		if sender := router.Sender(u); sender != nil {
			info = fmt.Sprintf("%s | %d", info, sender.ID)
		}

		if err != nil {
			var errx errorx.Error
			if errors.As(err, &errx) {
				xcontext.Logger(ctx).Warnf("%s | %d", info, errx.Code)
			} else {
				xcontext.Logger(ctx).Errorf("%s | %d | %v", info, -1, err)
			}
		} else {
			xcontext.Logger(ctx).Infof(info)
		}
	}
}
