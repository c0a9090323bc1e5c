package middleware

import (
	"context"

	"github.com/google/uuid"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/pkg/router"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// Trace gives every update its own id in the log lines it produces.
func Trace() router.MiddlewareFunc {
	return func(ctx context.Context, u *tgbotapi.Update) (context.Context, error) {
		if xcontext.TraceID(ctx) != "" {
			return nil, nil
		}

		return xcontext.WithTraceID(ctx, uuid.NewString()), nil
	}
}
