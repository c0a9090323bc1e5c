package domain

import (
	"context"
	"time"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// WeekCounter is the current reward cycle. Advance and Reset update the row in
// place, so concurrent callers never lose an update.
type WeekCounter interface {
	Current(ctx context.Context) (*entity.WeekCounter, error)
	Advance(ctx context.Context) (int, error)
	Reset(ctx context.Context) (int, error)
}

type weekCounter struct {
	weekCounterRepo repository.WeekCounterRepository
	now             func() time.Time
}

func NewWeekCounter(weekCounterRepo repository.WeekCounterRepository) *weekCounter {
	return &weekCounter{weekCounterRepo: weekCounterRepo, now: time.Now}
}

func (c *weekCounter) Current(ctx context.Context) (*entity.WeekCounter, error) {
	counter, err := c.weekCounterRepo.GetOrCreate(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get week counter: %v", err)
		return nil, errorx.Unknown
	}

	return counter, nil
}

func (c *weekCounter) Advance(ctx context.Context) (int, error) {
	cycle, err := c.weekCounterRepo.Advance(ctx, c.now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot advance week counter: %v", err)
		return 0, errorx.Unknown
	}

	return cycle, nil
}

func (c *weekCounter) Reset(ctx context.Context) (int, error) {
	cycle, err := c.weekCounterRepo.Reset(ctx, c.now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reset week counter: %v", err)
		return 0, errorx.Unknown
	}

	return cycle, nil
}
