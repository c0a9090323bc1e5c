package migration

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// migrate0000 will create the database with the latest version.
func migrate0000(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&entity.Account{},
		&entity.ReferralEdge{},
		&entity.CurrentCycleClaim{},
		&entity.WeeklyRecord{},
		&entity.MonthlyRecord{},
		&entity.WeekCounter{},
	)
}
