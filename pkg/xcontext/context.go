package xcontext

import (
	"context"
	"time"

	"github.com/questx-lab/referral/config"
	"github.com/questx-lab/referral/pkg/logger"
)

type (
	configsKey struct{}
	loggerKey  struct{}
	dbKey      struct{}
	dbTxKey    struct{}
	traceIDKey struct{}
	startKey   struct{}
)

var silentLogger = logger.NewLogger(logger.SILENCE)

func WithConfigs(ctx context.Context, cfg config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, cfg)
}

func Configs(ctx context.Context) config.Configs {
	cfg, ok := ctx.Value(configsKey{}).(config.Configs)
	if !ok {
		return config.Configs{}
	}

	return cfg
}

func WithLogger(ctx context.Context, logger logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func Logger(ctx context.Context) logger.Logger {
	l, ok := ctx.Value(loggerKey{}).(logger.Logger)
	if !ok {
		return silentLogger
	}

	return l
}

// WithTraceID tags every subsequent log line of this context with the id.
func WithTraceID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, traceIDKey{}, id)
	return WithLogger(ctx, Logger(ctx).With("trace_id", id))
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startKey{}, t)
}

func StartTime(ctx context.Context) time.Time {
	t, _ := ctx.Value(startKey{}).(time.Time)
	return t
}
