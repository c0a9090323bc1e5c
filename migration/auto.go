package migration

import (
	"context"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// When this migrator is called, no need to call other migrators.
func AutoMigrate(ctx context.Context) error {
	if err := migrate0000(ctx); err != nil {
		return err
	}

	return xcontext.DB(ctx).AutoMigrate(&entity.Migration{})
}
