package repository

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
)

type MonthlyRecordRepository interface {
	ReplacePeriod(ctx context.Context, period string, data []entity.MonthlyRecord) error
	GetByPeriod(ctx context.Context, period string) ([]entity.MonthlyRecord, error)
}

type monthlyRecordRepository struct{}

func NewMonthlyRecordRepository() *monthlyRecordRepository {
	return &monthlyRecordRepository{}
}

// ReplacePeriod drops the rows of period and inserts data in their place.
// Rows of other periods are kept. Callers run it inside a transaction.
func (r *monthlyRecordRepository) ReplacePeriod(
	ctx context.Context, period string, data []entity.MonthlyRecord,
) error {
	db := xcontext.DB(ctx)
	if err := db.Where("period=?", period).Delete(&entity.MonthlyRecord{}).Error; err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	return db.Create(&data).Error
}

func (r *monthlyRecordRepository) GetByPeriod(ctx context.Context, period string) ([]entity.MonthlyRecord, error) {
	var result []entity.MonthlyRecord
	err := xcontext.DB(ctx).
		Where("period=?", period).
		Order("qualifying_count DESC, account_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
