package repository

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type ClaimRepository interface {
	Upsert(ctx context.Context, data *entity.CurrentCycleClaim) error
	Get(ctx context.Context, accountID int64) (*entity.CurrentCycleClaim, error)
	GetAll(ctx context.Context) ([]entity.CurrentCycleClaim, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type claimRepository struct{}

func NewClaimRepository() *claimRepository {
	return &claimRepository{}
}

func (r *claimRepository) Upsert(ctx context.Context, data *entity.CurrentCycleClaim) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"destination", "credential", "qualifying_count", "submitted_at",
		}),
	}).Create(data).Error
}

func (r *claimRepository) Get(ctx context.Context, accountID int64) (*entity.CurrentCycleClaim, error) {
	var result entity.CurrentCycleClaim
	if err := xcontext.DB(ctx).Take(&result, "account_id=?", accountID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

// GetAll returns every claim ranked by qualifying count, earlier submissions
// first on ties.
func (r *claimRepository) GetAll(ctx context.Context) ([]entity.CurrentCycleClaim, error) {
	var result []entity.CurrentCycleClaim
	err := xcontext.DB(ctx).
		Order("qualifying_count DESC, submitted_at ASC, account_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *claimRepository) Count(ctx context.Context) (int64, error) {
	var result int64
	if err := xcontext.DB(ctx).Model(&entity.CurrentCycleClaim{}).Count(&result).Error; err != nil {
		return 0, err
	}

	return result, nil
}

func (r *claimRepository) DeleteAll(ctx context.Context) (int64, error) {
	tx := xcontext.DB(ctx).Where("1=1").Delete(&entity.CurrentCycleClaim{})
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}
