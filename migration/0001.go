package migration

import (
	"context"
	"time"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm/clause"
)

// migrate0001 seeds the week counter so the first closure finds cycle 1.
func migrate0001(ctx context.Context) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entity.WeekCounter{
		ID:        entity.WeekCounterID,
		Cycle:     1,
		StartedAt: time.Now(),
	}).Error
}
