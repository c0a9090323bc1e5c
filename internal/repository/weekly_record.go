package repository

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// WeeklyAggregate is one (account, destination, credential) group of weekly
// records. LastCycle is the newest cycle the group appears in.
type WeeklyAggregate struct {
	AccountID   int64
	Destination string
	Credential  string
	Total       int
	LastCycle   int
}

type WeeklyRecordRepository interface {
	CreateMany(ctx context.Context, data []entity.WeeklyRecord) error
	GetByCycle(ctx context.Context, cycle int) ([]entity.WeeklyRecord, error)
	Aggregate(ctx context.Context) ([]WeeklyAggregate, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type weeklyRecordRepository struct{}

func NewWeeklyRecordRepository() *weeklyRecordRepository {
	return &weeklyRecordRepository{}
}

// CreateMany is a plain insert, a (cycle, account) collision fails the whole
// statement.
func (r *weeklyRecordRepository) CreateMany(ctx context.Context, data []entity.WeeklyRecord) error {
	if len(data) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&data).Error
}

func (r *weeklyRecordRepository) GetByCycle(ctx context.Context, cycle int) ([]entity.WeeklyRecord, error) {
	var result []entity.WeeklyRecord
	err := xcontext.DB(ctx).
		Where("cycle=?", cycle).
		Order("qualifying_count DESC, account_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *weeklyRecordRepository) Aggregate(ctx context.Context) ([]WeeklyAggregate, error) {
	var result []WeeklyAggregate
	err := xcontext.DB(ctx).Model(&entity.WeeklyRecord{}).
		Select("account_id, destination, credential, " +
			"SUM(qualifying_count) AS total, MAX(cycle) AS last_cycle").
		Group("account_id, destination, credential").
		Order("total DESC, account_id ASC").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *weeklyRecordRepository) Count(ctx context.Context) (int64, error) {
	var result int64
	if err := xcontext.DB(ctx).Model(&entity.WeeklyRecord{}).Count(&result).Error; err != nil {
		return 0, err
	}

	return result, nil
}

func (r *weeklyRecordRepository) DeleteAll(ctx context.Context) (int64, error) {
	tx := xcontext.DB(ctx).Where("1=1").Delete(&entity.WeeklyRecord{})
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}
