package repository

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
)

type ReferrerCount struct {
	ReferrerID int64
	Total      int64
}

type ReferralRepository interface {
	Create(ctx context.Context, data *entity.ReferralEdge) error
	GetByReferredID(ctx context.Context, referredID int64) (*entity.ReferralEdge, error)
	GetQualifying(ctx context.Context, referrerID int64) ([]entity.ReferralEdge, error)
	GetGenuineActive(ctx context.Context, afterID int64, limit int) ([]entity.ReferralEdge, error)
	CountQualifying(ctx context.Context, referrerID int64) (int64, error)
	CountByStatus(ctx context.Context, referrerID int64, status entity.ReferralStatus) (int64, error)
	CountReferrersAbove(ctx context.Context, status entity.ReferralStatus, count int64) (int64, error)
	GetTopReferrers(ctx context.Context, limit int) ([]ReferrerCount, error)
	GetQualifyingReferrers(ctx context.Context, minCount int64) ([]ReferrerCount, error)
	MarkNotGenuine(ctx context.Context, id int64) (bool, error)
	AdvanceStatus(ctx context.Context, from []entity.ReferralStatus, to entity.ReferralStatus) (int64, error)
}

type referralRepository struct{}

func NewReferralRepository() *referralRepository {
	return &referralRepository{}
}

func (r *referralRepository) Create(ctx context.Context, data *entity.ReferralEdge) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *referralRepository) GetByReferredID(ctx context.Context, referredID int64) (*entity.ReferralEdge, error) {
	var result entity.ReferralEdge
	if err := xcontext.DB(ctx).Take(&result, "referred_id=?", referredID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralRepository) GetQualifying(ctx context.Context, referrerID int64) ([]entity.ReferralEdge, error) {
	var result []entity.ReferralEdge
	err := xcontext.DB(ctx).
		Where("referrer_id=? AND status=? AND is_genuine=?", referrerID, entity.ReferralStatusNew, true).
		Order("id").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetGenuineActive pages through genuine edges which are not ended, ordered by
// id and starting after afterID.
func (r *referralRepository) GetGenuineActive(
	ctx context.Context, afterID int64, limit int,
) ([]entity.ReferralEdge, error) {
	var result []entity.ReferralEdge
	err := xcontext.DB(ctx).
		Where("id > ? AND status <> ? AND is_genuine=?", afterID, entity.ReferralStatusEnded, true).
		Order("id").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *referralRepository) CountQualifying(ctx context.Context, referrerID int64) (int64, error) {
	var result int64
	err := xcontext.DB(ctx).Model(&entity.ReferralEdge{}).
		Where("referrer_id=? AND status=? AND is_genuine=?", referrerID, entity.ReferralStatusNew, true).
		Count(&result).Error
	if err != nil {
		return 0, err
	}

	return result, nil
}

func (r *referralRepository) CountByStatus(
	ctx context.Context, referrerID int64, status entity.ReferralStatus,
) (int64, error) {
	var result int64
	err := xcontext.DB(ctx).Model(&entity.ReferralEdge{}).
		Where("referrer_id=? AND status=?", referrerID, status).
		Count(&result).Error
	if err != nil {
		return 0, err
	}

	return result, nil
}

// CountReferrersAbove returns how many referrers own strictly more than count
// edges of the given status.
func (r *referralRepository) CountReferrersAbove(
	ctx context.Context, status entity.ReferralStatus, count int64,
) (int64, error) {
	db := xcontext.DB(ctx)
	sub := db.Model(&entity.ReferralEdge{}).
		Select("referrer_id").
		Where("status=?", status).
		Group("referrer_id").
		Having("COUNT(*) > ?", count)

	var result int64
	if err := db.Table("(?) AS ranked", sub).Count(&result).Error; err != nil {
		return 0, err
	}

	return result, nil
}

// GetTopReferrers ranks referrers by their genuine edges which are not ended.
// A non-positive limit returns every referrer.
func (r *referralRepository) GetTopReferrers(ctx context.Context, limit int) ([]ReferrerCount, error) {
	var result []ReferrerCount
	tx := xcontext.DB(ctx).Model(&entity.ReferralEdge{}).
		Select("referrer_id, COUNT(*) AS total").
		Where("status <> ? AND is_genuine=?", entity.ReferralStatusEnded, true).
		Group("referrer_id").
		Order("total DESC, referrer_id ASC")

	if limit > 0 {
		tx = tx.Limit(limit)
	}

	if err := tx.Scan(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// GetQualifyingReferrers returns the referrers owning at least minCount
// genuine new edges, most edges first.
func (r *referralRepository) GetQualifyingReferrers(
	ctx context.Context, minCount int64,
) ([]ReferrerCount, error) {
	var result []ReferrerCount
	err := xcontext.DB(ctx).Model(&entity.ReferralEdge{}).
		Select("referrer_id, COUNT(*) AS total").
		Where("status=? AND is_genuine=?", entity.ReferralStatusNew, true).
		Group("referrer_id").
		Having("COUNT(*) >= ?", minCount).
		Order("total DESC, referrer_id ASC").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// MarkNotGenuine only ever moves is_genuine downward and leaves the status
// alone. It reports whether the edge was genuine before the call.
func (r *referralRepository) MarkNotGenuine(ctx context.Context, id int64) (bool, error) {
	tx := xcontext.DB(ctx).Model(&entity.ReferralEdge{}).
		Where("id=? AND is_genuine=?", id, true).
		Update("is_genuine", false)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

func (r *referralRepository) AdvanceStatus(
	ctx context.Context, from []entity.ReferralStatus, to entity.ReferralStatus,
) (int64, error) {
	tx := xcontext.DB(ctx).Model(&entity.ReferralEdge{}).
		Where("status IN (?)", from).
		Update("status", to)
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}
