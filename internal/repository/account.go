package repository

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	Get(ctx context.Context, id int64) (*entity.Account, error)
	GetByIDs(ctx context.Context, ids []int64) ([]entity.Account, error)
	Upsert(ctx context.Context, data *entity.Account) error
	MarkDeparted(ctx context.Context, id int64) error
}

type accountRepository struct{}

func NewAccountRepository() *accountRepository {
	return &accountRepository{}
}

func (r *accountRepository) Get(ctx context.Context, id int64) (*entity.Account, error) {
	var result entity.Account
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *accountRepository) GetByIDs(ctx context.Context, ids []int64) ([]entity.Account, error) {
	var result []entity.Account
	if len(ids) == 0 {
		return result, nil
	}

	if err := xcontext.DB(ctx).Where("id IN (?)", ids).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// Upsert creates the account, or refreshes its names and brings it back if it
// had departed.
func (r *accountRepository) Upsert(ctx context.Context, data *entity.Account) error {
	data.Departed = false
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"first_name": data.FirstName,
			"last_name":  data.LastName,
			"handle":     data.Handle,
			"departed":   false,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(data).Error
}

func (r *accountRepository) MarkDeparted(ctx context.Context, id int64) error {
	tx := xcontext.DB(ctx).Model(&entity.Account{}).
		Where("id=?", id).
		Update("departed", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
