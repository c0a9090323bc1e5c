package domain

import (
	"testing"
	"time"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/idutil"
	"github.com/questx-lab/referral/pkg/testutil"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_closureDomain_CloseWeek_NothingToArchive(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusNew, true)
	require.NoError(t, err)

	_, err = s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.NothingToArchive), "got %v", err)

	require.Equal(t, 1, getCycle(t, ctx))
	require.Equal(t, int64(0), countRows(t, ctx, &entity.WeeklyRecord{}))
	require.Equal(t, entity.ReferralStatusNew, getEdge(t, ctx, 10).Status)
	require.Empty(t, s.publisher.Published)
}

func Test_closureDomain_CloseWeek(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()
	setCycle(t, ctx, 2)

	for _, id := range []int64{1, 2, 3} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	_, err := testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusNew, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 2, 20, entity.ReferralStatusNew, false)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 3, 30, entity.ReferralStatusEnded, true)
	require.NoError(t, err)

	_, err = testutil.SampleClaim(ctx, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)
	_, err = testutil.SampleClaim(ctx, 2, "ve777.club", "bob", 5)
	require.NoError(t, err)

	resp, err := s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Cycle)
	require.Equal(t, 3, resp.NextCycle)
	require.NotEmpty(t, resp.RunID)
	require.Equal(t, []model.RankedClaim{
		{Rank: 1, AccountID: 2, Name: "first2 last2", Destination: "ve777.club", Credential: "bob", Count: 5},
		{Rank: 2, AccountID: 1, Name: "first1 last1", Destination: "winfix.live", Credential: "alice", Count: 3},
	}, resp.Ranking)

	require.Equal(t, int64(0), countRows(t, ctx, &entity.CurrentCycleClaim{}))
	records, err := repository.NewWeeklyRecordRepository().GetByCycle(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(2), records[0].AccountID)
	require.Equal(t, 5, records[0].QualifyingCount)
	require.Equal(t, 3, getCycle(t, ctx))

	require.Equal(t, entity.ReferralStatusCounted, getEdge(t, ctx, 10).Status)
	require.Equal(t, entity.ReferralStatusCounted, getEdge(t, ctx, 20).Status)
	require.Equal(t, entity.ReferralStatusEnded, getEdge(t, ctx, 30).Status)
	require.Equal(t, []string{common.TopicWeekClosed}, s.publisher.Topics())

	// A retried trigger finds nothing left to archive.
	_, err = s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.NothingToArchive))
	require.Equal(t, int64(2), countRows(t, ctx, &entity.WeeklyRecord{}))
	require.Equal(t, 3, getCycle(t, ctx))
}

func Test_closureDomain_CloseWeek_RollbackOnCollision(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	for _, id := range []int64{1, 2} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	_, err := testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusNew, true)
	require.NoError(t, err)
	_, err = testutil.SampleClaim(ctx, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)
	_, err = testutil.SampleClaim(ctx, 2, "winfix.live", "bob", 3)
	require.NoError(t, err)

	// Week 1 is already archived for account 2.
	_, err = testutil.SampleWeeklyRecord(ctx, 1, 2, "winfix.live", "bob", 3)
	require.NoError(t, err)

	_, err = s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.Internal), "got %v", err)
	require.Contains(t, err.Error(), "archive claims")

	require.Equal(t, int64(2), countRows(t, ctx, &entity.CurrentCycleClaim{}))
	require.Equal(t, int64(1), countRows(t, ctx, &entity.WeeklyRecord{}))
	require.Equal(t, entity.ReferralStatusNew, getEdge(t, ctx, 10).Status)
	require.Equal(t, 1, getCycle(t, ctx))
	require.Empty(t, s.publisher.Published)
}

func Test_closureDomain_CloseWeek_Scenario(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()
	setCycle(t, ctx, 5)

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)

	for _, id := range []int64{10, 11, 12} {
		_, err := testutil.SampleEdge(ctx, 1, id, entity.ReferralStatusNew, true)
		require.NoError(t, err)
	}
	_, err = testutil.SampleEdge(ctx, 1, 13, entity.ReferralStatusNew, false)
	require.NoError(t, err)

	count, err := s.referralDomain.CountQualifying(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	_, err = s.claimDomain.SelectDestination(ctx, &model.SelectDestinationRequest{
		AccountID:   1,
		Destination: "winfix.live",
		PromptRef:   77,
	})
	require.NoError(t, err)

	claim, err := s.claimDomain.SubmitCredential(ctx, &model.SubmitCredentialRequest{
		AccountID:  1,
		PromptRef:  77,
		Credential: "foo",
	})
	require.NoError(t, err)
	require.True(t, claim.Consumed)

	resp, err := s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)
	require.Equal(t, 5, resp.Cycle)

	records, err := repository.NewWeeklyRecordRepository().GetByCycle(ctx, 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(1), records[0].AccountID)
	require.Equal(t, "winfix.live", records[0].Destination)
	require.Equal(t, "foo", records[0].Credential)
	require.Equal(t, 3, records[0].QualifyingCount)

	require.Equal(t, int64(0), countRows(t, ctx, &entity.CurrentCycleClaim{}))
	require.Equal(t, 6, getCycle(t, ctx))
}

func Test_closureDomain_CloseMonth(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()
	s.closureDomain.now = func() time.Time {
		return time.Date(2023, time.June, 30, 12, 0, 0, 0, time.UTC)
	}
	setCycle(t, ctx, 4)

	for _, id := range []int64{1, 2} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	_, err := testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusNew, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 1, 11, entity.ReferralStatusCounted, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 2, 20, entity.ReferralStatusCounted, false)
	require.NoError(t, err)

	weekly := []struct {
		cycle       int
		accountID   int64
		destination string
		credential  string
		count       int
	}{
		{1, 1, "winfix.live", "alice", 3},
		{2, 1, "winfix.live", "alice", 4},
		{3, 1, "ve777.club", "alice2", 5},
		{1, 2, "autoexch.live", "bob", 10},
	}
	for _, w := range weekly {
		_, err := testutil.SampleWeeklyRecord(ctx, w.cycle, w.accountID, w.destination, w.credential, w.count)
		require.NoError(t, err)
	}

	_, err = testutil.SampleClaim(ctx, 2, "autoexch.live", "bob", 3)
	require.NoError(t, err)

	// Another month stays untouched.
	err = repository.NewMonthlyRecordRepository().ReplacePeriod(ctx, "May 2023", []entity.MonthlyRecord{{
		SnowFlakeBase:   entity.SnowFlakeBase{ID: idutil.NewID()},
		Period:          "May 2023",
		AccountID:       2,
		QualifyingCount: 1,
	}})
	require.NoError(t, err)

	resp, err := s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)
	require.Equal(t, "June 2023", resp.Period)
	require.Equal(t, []model.RankedClaim{
		{Rank: 1, AccountID: 1, Name: "first1 last1", Destination: "ve777.club", Credential: "alice2", Count: 12},
		{Rank: 2, AccountID: 2, Name: "first2 last2", Destination: "autoexch.live", Credential: "bob", Count: 10},
	}, resp.Ranking)

	monthly, err := repository.NewMonthlyRecordRepository().GetByPeriod(ctx, "June 2023")
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	require.Equal(t, int64(1), monthly[0].AccountID)
	require.Equal(t, 12, monthly[0].QualifyingCount)
	require.Equal(t, int64(2), monthly[1].AccountID)
	require.Equal(t, 10, monthly[1].QualifyingCount)

	may, err := repository.NewMonthlyRecordRepository().GetByPeriod(ctx, "May 2023")
	require.NoError(t, err)
	require.Len(t, may, 1)

	require.Equal(t, int64(0), countRows(t, ctx, &entity.WeeklyRecord{}))
	require.Equal(t, int64(0), countRows(t, ctx, &entity.CurrentCycleClaim{}))
	require.Equal(t, 1, getCycle(t, ctx))
	for _, id := range []int64{10, 11, 20} {
		require.Equal(t, entity.ReferralStatusEnded, getEdge(t, ctx, id).Status)
	}
	require.Equal(t, []string{common.TopicMonthClosed}, s.publisher.Topics())

	_, err = s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.NothingToArchive))
	require.Equal(t, 1, getCycle(t, ctx))
}

func Test_closureDomain_CloseMonth_RollbackOnFailedStep(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()
	s.closureDomain.now = func() time.Time {
		return time.Date(2023, time.June, 30, 12, 0, 0, 0, time.UTC)
	}
	setCycle(t, ctx, 3)

	for _, id := range []int64{1, 2} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	_, err := testutil.SampleWeeklyRecord(ctx, 1, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)
	_, err = testutil.SampleWeeklyRecord(ctx, 2, 2, "ve777.club", "bob", 4)
	require.NoError(t, err)
	_, err = testutil.SampleClaim(ctx, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)

	err = repository.NewMonthlyRecordRepository().ReplacePeriod(ctx, "May 2023", []entity.MonthlyRecord{{
		SnowFlakeBase:   entity.SnowFlakeBase{ID: idutil.NewID()},
		Period:          "May 2023",
		AccountID:       2,
		QualifyingCount: 1,
	}})
	require.NoError(t, err)

	// Ending the referrals fails after the monthly rows are written and the
	// weekly records and claims are cleared.
	require.NoError(t, xcontext.DB(ctx).Migrator().DropTable(&entity.ReferralEdge{}))

	_, err = s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.Internal), "got %v", err)
	require.Contains(t, err.Error(), "end referrals")

	require.Equal(t, int64(2), countRows(t, ctx, &entity.WeeklyRecord{}))
	require.Equal(t, int64(1), countRows(t, ctx, &entity.CurrentCycleClaim{}))
	require.Equal(t, int64(1), countRows(t, ctx, &entity.MonthlyRecord{}))

	june, err := repository.NewMonthlyRecordRepository().GetByPeriod(ctx, "June 2023")
	require.NoError(t, err)
	require.Empty(t, june)

	may, err := repository.NewMonthlyRecordRepository().GetByPeriod(ctx, "May 2023")
	require.NoError(t, err)
	require.Len(t, may, 1)

	require.Equal(t, 3, getCycle(t, ctx))
	require.Empty(t, s.publisher.Published)
}

func Test_closureDomain_CloseMonth_LabelsClosureMonth(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	// A closure run just after midnight on the 1st names the new month.
	s.closureDomain.now = func() time.Time {
		return time.Date(2023, time.July, 1, 0, 5, 0, 0, time.UTC)
	}

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)
	_, err = testutil.SampleWeeklyRecord(ctx, 4, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)

	resp, err := s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)
	require.Equal(t, "July 2023", resp.Period)

	monthly, err := repository.NewMonthlyRecordRepository().GetByPeriod(ctx, "July 2023")
	require.NoError(t, err)
	require.Len(t, monthly, 1)
}

func Test_closureDomain_CloseMonth_InvalidatesLeaderboard(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusCounted, true)
	require.NoError(t, err)
	_, err = testutil.SampleWeeklyRecord(ctx, 1, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)

	board, err := s.referralDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{})
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)

	_, err = s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)

	board, err = s.referralDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{})
	require.NoError(t, err)
	require.Empty(t, board.Entries)
}

func Test_closureDomain_MutualExclusion(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)
	_, err = testutil.SampleClaim(ctx, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)
	_, err = testutil.SampleWeeklyRecord(ctx, 7, 1, "winfix.live", "alice", 3)
	require.NoError(t, err)

	// Another closure holds the guard.
	s.closureDomain.mutex.Lock()

	_, err = s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.Unavailable))

	_, err = s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.Unavailable))

	_, err = s.closureDomain.ResetCycle(ctx, &model.ResetCycleRequest{OperatorID: testutil.Operator1})
	require.True(t, errorx.Is(err, errorx.Unavailable))

	s.closureDomain.mutex.Unlock()

	require.Equal(t, int64(1), countRows(t, ctx, &entity.CurrentCycleClaim{}))
	require.Equal(t, 1, getCycle(t, ctx))

	_, err = s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)
}

func Test_closureDomain_OperatorOnly(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := s.closureDomain.CloseWeek(ctx, &model.CloseWeekRequest{OperatorID: 1})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	_, err = s.closureDomain.CloseMonth(ctx, &model.CloseMonthRequest{OperatorID: 1})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	_, err = s.closureDomain.ResetCycle(ctx, &model.ResetCycleRequest{OperatorID: 1})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))
}

func Test_closureDomain_CurrentAndResetCycle(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()
	setCycle(t, ctx, 9)

	current, err := s.closureDomain.GetCurrentCycle(ctx, &model.GetCurrentCycleRequest{})
	require.NoError(t, err)
	require.Equal(t, 9, current.Cycle)

	resp, err := s.closureDomain.ResetCycle(ctx, &model.ResetCycleRequest{OperatorID: testutil.Operator1})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Cycle)

	current, err = s.closureDomain.GetCurrentCycle(ctx, &model.GetCurrentCycleRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, current.Cycle)
}

func Test_mergeAggregates(t *testing.T) {
	result := mergeAggregates([]repository.WeeklyAggregate{
		{AccountID: 2, Destination: "a", Credential: "x", Total: 6, LastCycle: 1},
		{AccountID: 1, Destination: "b", Credential: "y", Total: 5, LastCycle: 3},
		{AccountID: 1, Destination: "c", Credential: "z", Total: 1, LastCycle: 2},
		{AccountID: 3, Destination: "d", Credential: "w", Total: 6, LastCycle: 1},
	})

	require.Equal(t, []entity.MonthlyRecord{
		{AccountID: 1, Destination: "b", Credential: "y", QualifyingCount: 6},
		{AccountID: 2, Destination: "a", Credential: "x", QualifyingCount: 6},
		{AccountID: 3, Destination: "d", Credential: "w", QualifyingCount: 6},
	}, result)
}
