package domain

import (
	"context"
	"testing"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain/pendingclaim"
	"github.com/questx-lab/referral/internal/domain/statistic"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/testutil"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type suite struct {
	caller    *testutil.MockTelegramCaller
	redis     *testutil.MockRedisClient
	publisher *testutil.MockPublisher
	tracker   *pendingclaim.Tracker

	referralDomain *referralDomain
	claimDomain    *claimDomain
	closureDomain  *closureDomain
	accountDomain  *accountDomain
}

func newSuite() *suite {
	s := &suite{
		caller:    testutil.NewMockTelegramCaller(),
		redis:     testutil.NewMockRedisClient(),
		publisher: &testutil.MockPublisher{},
		tracker:   pendingclaim.NewTracker(),
	}

	accountRepo := repository.NewAccountRepository()
	referralRepo := repository.NewReferralRepository()
	claimRepo := repository.NewClaimRepository()
	leaderboard := statistic.New(referralRepo, s.redis)
	operatorVerifier := common.NewOperatorVerifier()

	s.accountDomain = NewAccountDomain(accountRepo)
	s.referralDomain = NewReferralDomain(
		accountRepo,
		referralRepo,
		s.caller,
		NewRealityHeuristic(s.caller),
		leaderboard,
		s.publisher,
		operatorVerifier,
	)
	s.claimDomain = NewClaimDomain(claimRepo, s.referralDomain, s.tracker)
	s.closureDomain = NewClosureDomain(
		accountRepo,
		referralRepo,
		claimRepo,
		repository.NewWeeklyRecordRepository(),
		repository.NewMonthlyRecordRepository(),
		repository.NewWeekCounterRepository(),
		leaderboard,
		s.publisher,
		operatorVerifier,
	)

	return s
}

func countRows(t *testing.T, ctx context.Context, model any) int64 {
	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(model).Count(&count).Error)
	return count
}

func getEdge(t *testing.T, ctx context.Context, referredID int64) *entity.ReferralEdge {
	edge, err := repository.NewReferralRepository().GetByReferredID(ctx, referredID)
	require.NoError(t, err)
	return edge
}

func getCycle(t *testing.T, ctx context.Context) int {
	counter, err := repository.NewWeekCounterRepository().GetOrCreate(ctx)
	require.NoError(t, err)
	return counter.Cycle
}

func setCycle(t *testing.T, ctx context.Context, cycle int) {
	getCycle(t, ctx)
	err := xcontext.DB(ctx).Model(&entity.WeekCounter{}).
		Where("id=?", entity.WeekCounterID).
		Update("cycle", cycle).Error
	require.NoError(t, err)
}
