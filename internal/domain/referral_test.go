package domain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func snapshot(id int64) model.AccountSnapshot {
	return model.AccountSnapshot{ID: id, FirstName: "Alice", Handle: "alice"}
}

func Test_referralDomain_RecordReferral(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)

	resp, err := s.referralDomain.RecordReferral(ctx, &model.RecordReferralRequest{
		ReferrerID: 1,
		Referred:   snapshot(2),
		IsGenuine:  true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Edge.ReferrerID)
	require.Equal(t, int64(2), resp.Edge.ReferredID)
	require.Equal(t, "alice", resp.Edge.ReferredHandle)
	require.Equal(t, string(entity.ReferralStatusNew), resp.Edge.Status)
	require.True(t, resp.Edge.IsGenuine)

	// The referred account is created on the way.
	_, err = s.accountDomain.accountRepo.Get(ctx, 2)
	require.NoError(t, err)

	require.Equal(t, []string{common.TopicReferralRecorded}, s.publisher.Topics())
}

func Test_referralDomain_RecordReferral_Rejections(t *testing.T) {
	testCases := []struct {
		name       string
		referrerID int64
		referredID int64
		setup      func(ctx context.Context) error
		wantCode   errorx.Code
	}{
		{
			name:       "self referral",
			referrerID: 1,
			referredID: 1,
			wantCode:   errorx.SelfReferral,
		},
		{
			name:       "unknown referrer",
			referrerID: 42,
			referredID: 2,
			wantCode:   errorx.ReferrerUnknown,
		},
		{
			name:       "departed referrer",
			referrerID: 3,
			referredID: 2,
			setup: func(ctx context.Context) error {
				_, err := testutil.SampleAccount(ctx, 3, &entity.Account{Departed: true})
				return err
			},
			wantCode: errorx.ReferrerUnknown,
		},
		{
			name:       "already referred",
			referrerID: 1,
			referredID: 5,
			setup: func(ctx context.Context) error {
				_, err := testutil.SampleAccount(ctx, 4, nil)
				if err != nil {
					return err
				}

				_, err = testutil.SampleEdge(ctx, 4, 5, entity.ReferralStatusEnded, true)
				return err
			},
			wantCode: errorx.AlreadyReferred,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.MockContext()
			s := newSuite()

			_, err := testutil.SampleAccount(ctx, 1, nil)
			require.NoError(t, err)

			if tt.setup != nil {
				require.NoError(t, tt.setup(ctx))
			}

			before := countRows(t, ctx, &entity.ReferralEdge{})

			_, err = s.referralDomain.RecordReferral(ctx, &model.RecordReferralRequest{
				ReferrerID: tt.referrerID,
				Referred:   snapshot(tt.referredID),
				IsGenuine:  true,
			})
			require.True(t, errorx.Is(err, tt.wantCode), "got %v", err)
			require.Equal(t, before, countRows(t, ctx, &entity.ReferralEdge{}))
			require.Empty(t, s.publisher.Published)
		})
	}
}

func Test_referralDomain_RecordReferral_ConcurrentSameReferred(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	for _, id := range []int64{1, 2, 3, 4} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for _, referrerID := range []int64{1, 2, 3, 4} {
		wg.Add(1)
		go func(referrerID int64) {
			defer wg.Done()
			_, err := s.referralDomain.RecordReferral(ctx, &model.RecordReferralRequest{
				ReferrerID: referrerID,
				Referred:   snapshot(100),
				IsGenuine:  true,
			})
			errs <- err
		}(referrerID)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		require.True(t, errorx.Is(err, errorx.AlreadyReferred), "got %v", err)
	}

	require.Equal(t, 1, succeeded)
	require.Equal(t, int64(1), countRows(t, ctx, &entity.ReferralEdge{}))
}

func Test_referralDomain_CountQualifying(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)

	edges := []struct {
		referredID int64
		status     entity.ReferralStatus
		isGenuine  bool
	}{
		{10, entity.ReferralStatusNew, true},
		{11, entity.ReferralStatusNew, true},
		{12, entity.ReferralStatusNew, false},
		{13, entity.ReferralStatusCounted, true},
		{14, entity.ReferralStatusEnded, true},
	}
	for _, e := range edges {
		_, err := testutil.SampleEdge(ctx, 1, e.referredID, e.status, e.isGenuine)
		require.NoError(t, err)
	}

	count, err := s.referralDomain.CountQualifying(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	ok, err := s.referralDomain.Qualifies(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = testutil.SampleEdge(ctx, 1, 15, entity.ReferralStatusNew, true)
	require.NoError(t, err)

	ok, err = s.referralDomain.Qualifies(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

func Test_referralDomain_RevalidateEdge(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)

	for _, id := range []int64{10, 11, 12} {
		_, err := testutil.SampleEdge(ctx, 1, id, entity.ReferralStatusCounted, true)
		require.NoError(t, err)
	}

	s.caller.IsMemberFunc = func(ctx context.Context, channelID, accountID int64) (bool, error) {
		require.Equal(t, testutil.ChannelID, channelID)
		switch accountID {
		case 10:
			return true, nil
		case 11:
			return false, nil
		}

		return false, errors.New("telegram is down")
	}

	for _, id := range []int64{10, 11, 12} {
		_, err := s.referralDomain.RevalidateEdge(ctx, getEdge(t, ctx, id))
		require.NoError(t, err)
	}

	require.True(t, getEdge(t, ctx, 10).IsGenuine)

	// Left or unreachable both count as not genuine, the status is kept.
	for _, id := range []int64{11, 12} {
		edge := getEdge(t, ctx, id)
		require.False(t, edge.IsGenuine)
		require.Equal(t, entity.ReferralStatusCounted, edge.Status)
	}

	// Rejoining does not restore genuineness.
	s.caller.IsMemberFunc = nil
	withdrawn, err := s.referralDomain.RevalidateEdge(ctx, getEdge(t, ctx, 11))
	require.NoError(t, err)
	require.False(t, withdrawn)
	require.False(t, getEdge(t, ctx, 11).IsGenuine)
}

func Test_referralDomain_RevalidateReferrals(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	for _, id := range []int64{1, 2} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	for _, id := range []int64{10, 11, 12} {
		_, err := testutil.SampleEdge(ctx, 1, id, entity.ReferralStatusNew, true)
		require.NoError(t, err)
	}
	_, err := testutil.SampleEdge(ctx, 2, 20, entity.ReferralStatusNew, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 2, 21, entity.ReferralStatusEnded, true)
	require.NoError(t, err)

	s.caller.IsMemberFunc = func(ctx context.Context, channelID, accountID int64) (bool, error) {
		return accountID != 11 && accountID != 20, nil
	}

	resp, err := s.referralDomain.RevalidateReferrals(ctx, &model.RevalidateReferralsRequest{ReferrerID: 1})
	require.NoError(t, err)
	require.Equal(t, &model.RevalidateReferralsResponse{Checked: 3, Withdrawn: 1}, resp)
	require.True(t, getEdge(t, ctx, 20).IsGenuine)

	// Zero referrer walks every genuine edge which is not ended.
	resp, err = s.referralDomain.RevalidateReferrals(ctx, &model.RevalidateReferralsRequest{})
	require.NoError(t, err)
	require.Equal(t, &model.RevalidateReferralsResponse{Checked: 3, Withdrawn: 1}, resp)
	require.False(t, getEdge(t, ctx, 20).IsGenuine)
	require.True(t, getEdge(t, ctx, 21).IsGenuine)
}

func Test_referralDomain_Refer(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)

	// No handle, a two letter name and no photo.
	resp, err := s.referralDomain.Refer(ctx, &model.ReferRequest{
		ReferrerID: 1,
		Referred:   model.AccountSnapshot{ID: 2, FirstName: "Al"},
	})
	require.NoError(t, err)
	require.False(t, resp.Edge.IsGenuine)
	require.Equal(t, 1, s.caller.PhotoCalls)

	resp, err = s.referralDomain.Refer(ctx, &model.ReferRequest{
		ReferrerID: 1,
		Referred:   model.AccountSnapshot{ID: 3, Handle: "bob"},
	})
	require.NoError(t, err)
	require.True(t, resp.Edge.IsGenuine)
	require.Equal(t, 1, s.caller.PhotoCalls)

	// Registered accounts cannot be referred anymore.
	_, err = s.referralDomain.Refer(ctx, &model.ReferRequest{
		ReferrerID: 1,
		Referred:   model.AccountSnapshot{ID: 3, Handle: "bob"},
	})
	require.True(t, errorx.Is(err, errorx.AlreadyReferred))

	_, err = s.referralDomain.Refer(ctx, &model.ReferRequest{ReferrerID: 1, Referred: snapshot(1)})
	require.True(t, errorx.Is(err, errorx.SelfReferral))

	s.caller.IsMemberFunc = func(ctx context.Context, channelID, accountID int64) (bool, error) {
		return false, nil
	}
	_, err = s.referralDomain.Refer(ctx, &model.ReferRequest{ReferrerID: 1, Referred: snapshot(4)})
	require.True(t, errorx.Is(err, errorx.ReferrerUnknown))

	count, err := s.referralDomain.CountQualifying(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func Test_referralDomain_GetMyStats(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	for _, id := range []int64{1, 2, 3} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	// Account 1 has 3 new edges, account 2 has 4, account 3 has none.
	for _, id := range []int64{10, 11, 12} {
		_, err := testutil.SampleEdge(ctx, 1, id, entity.ReferralStatusNew, true)
		require.NoError(t, err)
	}
	for _, id := range []int64{20, 21, 22, 23} {
		_, err := testutil.SampleEdge(ctx, 2, id, entity.ReferralStatusNew, id != 23)
		require.NoError(t, err)
	}

	resp, err := s.referralDomain.GetMyStats(ctx, &model.GetMyStatsRequest{AccountID: 1})
	require.NoError(t, err)
	require.Equal(t, &model.GetMyStatsResponse{
		QualifyingCount: 3,
		NewCount:        3,
		Rank:            2,
		Threshold:       3,
		Qualified:       true,
	}, resp)

	resp, err = s.referralDomain.GetMyStats(ctx, &model.GetMyStatsRequest{AccountID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), resp.QualifyingCount)
	require.Equal(t, int64(1), resp.Rank)

	resp, err = s.referralDomain.GetMyStats(ctx, &model.GetMyStatsRequest{AccountID: 3})
	require.NoError(t, err)
	require.Equal(t, int64(0), resp.Rank)
	require.False(t, resp.Qualified)
}

func Test_referralDomain_GetLeaderboard(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	for _, id := range []int64{1, 2, 3, 4} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	samples := map[int64][]entity.ReferralStatus{
		1: {entity.ReferralStatusNew, entity.ReferralStatusCounted},
		2: {entity.ReferralStatusNew, entity.ReferralStatusNew, entity.ReferralStatusCounted},
		3: {entity.ReferralStatusEnded, entity.ReferralStatusEnded, entity.ReferralStatusEnded, entity.ReferralStatusNew},
		4: {entity.ReferralStatusEnded},
	}

	referredID := int64(100)
	for referrerID, statuses := range samples {
		for _, status := range statuses {
			referredID++
			_, err := testutil.SampleEdge(ctx, referrerID, referredID, status, true)
			require.NoError(t, err)
		}
	}

	resp, err := s.referralDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{})
	require.NoError(t, err)
	require.Equal(t, []model.LeaderboardEntry{
		{Rank: 1, AccountID: 2, Name: "first2 last2", Count: 3},
		{Rank: 2, AccountID: 1, Name: "first1 last1", Count: 2},
		{Rank: 3, AccountID: 3, Name: "first3 last3", Count: 1},
	}, resp.Entries)

	// The board is now cached, a new genuine referral moves it.
	_, err = s.referralDomain.RecordReferral(ctx, &model.RecordReferralRequest{
		ReferrerID: 4,
		Referred:   snapshot(500),
		IsGenuine:  true,
	})
	require.NoError(t, err)

	score, ok := s.redis.Score(common.RedisKeyLeaderboard(), "4")
	require.True(t, ok)
	require.Equal(t, float64(1), score)
}

func Test_referralDomain_GetEligibleAccounts(t *testing.T) {
	ctx := testutil.MockContext()
	s := newSuite()

	for _, id := range []int64{1, 2, 3} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	referredID := int64(100)
	for _, referrerID := range []int64{1, 1, 1, 2, 2, 3, 3, 3} {
		referredID++
		_, err := testutil.SampleEdge(ctx, referrerID, referredID, entity.ReferralStatusNew, true)
		require.NoError(t, err)
	}

	// A departed referrer is not asked.
	_, err := testutil.SampleAccount(ctx, 3, &entity.Account{Departed: true})
	require.NoError(t, err)

	_, err = s.referralDomain.GetEligibleAccounts(ctx, &model.GetEligibleAccountsRequest{OperatorID: 1})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	resp, err := s.referralDomain.GetEligibleAccounts(ctx, &model.GetEligibleAccountsRequest{
		OperatorID: testutil.Operator1,
	})
	require.NoError(t, err)
	require.Equal(t, []model.EligibleAccount{
		{AccountID: 1, Name: "first1 last1", QualifyingCount: 3},
	}, resp.Accounts)
}
