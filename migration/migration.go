package migration

import (
	"context"
	"errors"
	"time"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm"
)

type migrator struct {
	version string
	fn      func(context.Context) error
}

// Versions run in this order, each one at most once per database.
var versions = []migrator{
	{version: "0000", fn: migrate0000},
	{version: "0001", fn: migrate0001},
}

var Migrators = map[string]func(context.Context) error{
	"auto":   AutoMigrate,
	"latest": Migrate,
}

// Migrate applies every version which is not recorded in the migrations
// table yet.
func Migrate(ctx context.Context) error {
	if err := xcontext.DB(ctx).AutoMigrate(&entity.Migration{}); err != nil {
		return err
	}

	for _, m := range versions {
		var applied entity.Migration
		err := xcontext.DB(ctx).Take(&applied, "version=?", m.version).Error
		if err == nil {
			continue
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		xcontext.Logger(ctx).Infof("Applying migration %s", m.version)
		if err := applyVersion(ctx, m); err != nil {
			return err
		}
	}

	return nil
}

func applyVersion(ctx context.Context, m migrator) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := m.fn(ctx); err != nil {
		return err
	}

	err := xcontext.DB(ctx).Create(&entity.Migration{
		Version:   m.version,
		AppliedAt: time.Now(),
	}).Error
	if err != nil {
		return err
	}

	return xcontext.WithCommitDBTransaction(ctx)
}
