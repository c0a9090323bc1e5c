package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/router"
	"github.com/questx-lab/referral/pkg/xcontext"
)

func WithStartTime() router.MiddlewareFunc {
	return func(ctx context.Context, u *tgbotapi.Update) (context.Context, error) {
		return xcontext.WithStartTime(ctx, time.Now()), nil
	}
}

func Prometheus() router.CloserFunc {
	return func(ctx context.Context, u *tgbotapi.Update, err error) {
		kind := router.Kind(u)
		code := 0
		if err != nil {
			var errx errorx.Error
			if errors.As(err, &errx) {
				code = int(errx.Code)
			} else {
				code = -1
			}
		}

		common.Inc(common.BotUpdateTotal, kind, fmt.Sprint(code))

		startTime := xcontext.StartTime(ctx)
		if startTime.IsZero() {
			return
		}

		if histogram, ok := common.PromHistograms[common.BotUpdateDuration]; ok {
			histogram.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
		}
	}
}
