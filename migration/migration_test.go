package migration

import (
	"context"
	"testing"

	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func emptyContext(t *testing.T) context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return xcontext.WithDB(context.Background(), db)
}

func TestMigrate(t *testing.T) {
	ctx := emptyContext(t)

	require.NoError(t, Migrate(ctx))
	// Running twice is a no-op.
	require.NoError(t, Migrate(ctx))

	var applied []entity.Migration
	require.NoError(t, xcontext.DB(ctx).Order("version").Find(&applied).Error)
	require.Len(t, applied, len(versions))

	var counter entity.WeekCounter
	require.NoError(t, xcontext.DB(ctx).Take(&counter, "id=?", entity.WeekCounterID).Error)
	require.Equal(t, 1, counter.Cycle)
}

func TestAutoMigrate(t *testing.T) {
	ctx := emptyContext(t)
	require.NoError(t, AutoMigrate(ctx))

	for _, table := range []any{
		&entity.Account{},
		&entity.ReferralEdge{},
		&entity.CurrentCycleClaim{},
		&entity.WeeklyRecord{},
		&entity.MonthlyRecord{},
		&entity.WeekCounter{},
	} {
		require.True(t, xcontext.DB(ctx).Migrator().HasTable(table))
	}
}
