package repository

import (
	"context"
	"time"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WeekCounterRepository interface {
	GetOrCreate(ctx context.Context) (*entity.WeekCounter, error)
	GetForUpdate(ctx context.Context) (*entity.WeekCounter, error)
	Advance(ctx context.Context, now time.Time) (int, error)
	Reset(ctx context.Context, now time.Time) (int, error)
}

type weekCounterRepository struct{}

func NewWeekCounterRepository() *weekCounterRepository {
	return &weekCounterRepository{}
}

// GetOrCreate seeds the singleton with cycle 1 if it is missing. Concurrent
// seeders are fine, the losing insert is ignored.
func (r *weekCounterRepository) GetOrCreate(ctx context.Context) (*entity.WeekCounter, error) {
	db := xcontext.DB(ctx)
	seed := &entity.WeekCounter{ID: entity.WeekCounterID, Cycle: 1, StartedAt: time.Now()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	var result entity.WeekCounter
	if err := db.Take(&result, "id=?", entity.WeekCounterID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

// GetForUpdate locks the singleton row until the surrounding transaction
// ends. Closures take this lock first so they serialize against each other
// across processes.
func (r *weekCounterRepository) GetForUpdate(ctx context.Context) (*entity.WeekCounter, error) {
	if _, err := r.GetOrCreate(ctx); err != nil {
		return nil, err
	}

	var result entity.WeekCounter
	err := xcontext.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&result, "id=?", entity.WeekCounterID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *weekCounterRepository) Advance(ctx context.Context, now time.Time) (int, error) {
	return r.update(ctx, map[string]any{
		"cycle":      gorm.Expr("cycle+?", 1),
		"started_at": now,
	})
}

func (r *weekCounterRepository) Reset(ctx context.Context, now time.Time) (int, error) {
	return r.update(ctx, map[string]any{
		"cycle":      1,
		"started_at": now,
	})
}

// update changes the row in place and reads it back in the same transaction,
// so the returned cycle is the one this call wrote.
func (r *weekCounterRepository) update(ctx context.Context, values map[string]any) (int, error) {
	if _, err := r.GetOrCreate(ctx); err != nil {
		return 0, err
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	tx := xcontext.DB(ctx).Model(&entity.WeekCounter{}).
		Where("id=?", entity.WeekCounterID).
		Updates(values)
	if tx.Error != nil {
		return 0, tx.Error
	}

	var result entity.WeekCounter
	if err := xcontext.DB(ctx).Take(&result, "id=?", entity.WeekCounterID).Error; err != nil {
		return 0, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return 0, err
	}

	return result.Cycle, nil
}
